package lead

import (
	"context"
	"log/slog"
	"time"

	"github.com/frontdeskai/frontdesk/internal/domain"
	"github.com/google/uuid"
)

// Replies emitted by the state machine around the collection flow.
const (
	collectLeadIn = "Great! I can have the team reach out to you."
	declineReply  = "No problem at all. If you change your mind later, just let me know and I can have the team reach out."
	confirmReply  = "Thanks! I'm sending your details to the team now. They'll reach out soon."
	// neutralDispatchReply is shown when the notification could not be
	// delivered after retries. The visitor's details are kept for follow-up,
	// so the failure stays invisible to them.
	neutralDispatchReply = "Thanks! I've passed your details along. The team will follow up with you soon."

	callOfferSuffix = "\n\nIf you'd like, I can have the team give you a call to help with this. Just reply 'yes' and I'll collect your details."
)

// Answerer produces a grounded reply for informational turns. It never
// returns an error; upstream failures surface as a fallback string.
type Answerer interface {
	Answer(ctx context.Context, p *domain.ClientProfile, history []domain.Message, visitorText string) string
}

// Notifier delivers a completed lead notification. Implementations retry
// transient failures internally; a returned error means the retry budget is
// exhausted or the failure is fatal.
type Notifier interface {
	Send(ctx context.Context, p *domain.ClientProfile, lead *domain.LeadRecord) error
}

// Archive persists completed leads and dispatch failures for out-of-band
// follow-up. Archive errors are logged, never surfaced to the visitor.
type Archive interface {
	SaveLead(ctx context.Context, lead *domain.LeadRecord) error
	RecordDispatchFailure(ctx context.Context, lead *domain.LeadRecord, cause string) error
}

// Result is the outcome of processing one inbound turn.
type Result struct {
	Reply          string
	Phase          domain.Phase
	LeadDispatched bool
}

// Machine drives a session from browsing through field collection to
// dispatch. It serializes turns per session via the session mutex, so
// concurrent turns for the same session can never double-advance a field or
// double-dispatch a lead.
type Machine struct {
	classifier Classifier
	answerer   Answerer
	notifier   Notifier
	archive    Archive
	policy     FieldPolicy

	historyLimit int
	logger       *slog.Logger
}

// NewMachine creates the lead extraction state machine.
func NewMachine(classifier Classifier, answerer Answerer, notifier Notifier, archive Archive, policy FieldPolicy, historyLimit int, logger *slog.Logger) *Machine {
	if classifier == nil {
		classifier = KeywordClassifier{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	if historyLimit <= 0 {
		historyLimit = 20
	}
	return &Machine{
		classifier:   classifier,
		answerer:     answerer,
		notifier:     notifier,
		archive:      archive,
		policy:       policy,
		historyLimit: historyLimit,
		logger:       logger,
	}
}

// ProcessTurn handles one visitor turn for the session. It takes the
// session's mutex for the duration of the turn; turns for other sessions
// proceed in parallel.
func (m *Machine) ProcessTurn(ctx context.Context, p *domain.ClientProfile, s *domain.Session, visitorText string) Result {
	s.Mu.Lock()
	defer s.Mu.Unlock()

	s.LastActivityAt = time.Now()
	s.RecordMessage("customer", visitorText)

	var reply string
	switch s.Phase {
	case domain.PhaseBrowsing:
		reply = m.browsingTurn(ctx, p, s, visitorText)
	case domain.PhaseCollecting:
		reply = m.collectingTurn(ctx, p, s, visitorText)
	default:
		// complete / dispatched: a fresh soft sub-conversation. Answer
		// questions but never re-collect or re-dispatch.
		reply = m.answer(ctx, p, s, visitorText)
	}

	s.RecordMessage("assistant", reply)
	return Result{Reply: reply, Phase: s.Phase, LeadDispatched: s.LeadDispatched}
}

func (m *Machine) browsingTurn(ctx context.Context, p *domain.ClientProfile, s *domain.Session, text string) string {
	if s.AwaitingConfirm {
		s.AwaitingConfirm = false
		switch {
		case LooksLikeYes(text):
			return m.startCollecting(p, s)
		case LooksLikeNo(text):
			return declineReply
		}
		// Anything else drops the pending offer and is handled normally.
	}

	if m.classifier.Classify(text) == IntentLead {
		return m.startCollecting(p, s)
	}

	answer := m.answer(ctx, p, s, text)

	// Pain/appointment-flavored questions get a soft call offer appended so
	// the next "yes" can start collection without explicit handoff phrasing.
	if SuggestsCallOffer(text) {
		s.AwaitingConfirm = true
		answer += callOfferSuffix
	}

	return answer
}

func (m *Machine) startCollecting(p *domain.ClientProfile, s *domain.Session) string {
	s.Phase = domain.PhaseCollecting
	s.PendingIndex = 0
	if s.Collected == nil {
		s.Collected = make(map[string]string)
	}
	m.logger.Info("lead flow started",
		"client_id", p.ClientID, "session_id", s.SessionID)
	return collectLeadIn + " " + PromptFor(p.RequiredFields[0])
}

func (m *Machine) collectingTurn(ctx context.Context, p *domain.ClientProfile, s *domain.Session, text string) string {
	pending := s.PendingField(p.RequiredFields)
	filled := m.policy.Fill(text, p.RequiredFields, s.Collected, s.PendingIndex)

	// Advance to the first still-missing field; never re-ask a collected one.
	s.PendingIndex = len(p.RequiredFields)
	for i, f := range p.RequiredFields {
		if _, ok := s.Collected[f]; !ok {
			s.PendingIndex = i
			break
		}
	}

	missing := s.MissingFields(p.RequiredFields)
	if len(missing) == 0 {
		return m.finishLead(ctx, p, s)
	}

	if len(filled) == 0 {
		// Extraction failed: stay on the same field and clarify.
		return m.policy.ClarifyFor(pending)
	}

	return PromptFor(missing[0])
}

// finishLead snapshots the collected fields, archives the lead, and hands it
// to the notifier exactly once.
func (m *Machine) finishLead(ctx context.Context, p *domain.ClientProfile, s *domain.Session) string {
	s.Phase = domain.PhaseComplete

	if s.LeadDispatched {
		// Guard against double dispatch; with per-session serialization this
		// indicates a logic error upstream.
		return confirmReply
	}

	fields := make(map[string]string, len(s.Collected))
	for k, v := range s.Collected {
		fields[k] = v
	}
	lead := &domain.LeadRecord{
		LeadID:    uuid.NewString(),
		ClientID:  p.ClientID,
		Fields:    fields,
		CreatedAt: time.Now(),
	}

	// Dispatch and archival must complete even if the visitor disconnects
	// mid-turn, so they run detached from the request context.
	dctx := context.WithoutCancel(ctx)

	if m.archive != nil {
		if err := m.archive.SaveLead(dctx, lead); err != nil {
			m.logger.Error("failed to archive lead",
				"client_id", p.ClientID, "lead_id", lead.LeadID, "error", err)
		}
	}

	if err := m.notifier.Send(dctx, p, lead); err != nil {
		m.logger.Error("lead notification failed permanently",
			"client_id", p.ClientID, "lead_id", lead.LeadID, "error", err)
		if m.archive != nil {
			if recErr := m.archive.RecordDispatchFailure(dctx, lead, err.Error()); recErr != nil {
				m.logger.Error("failed to record dispatch failure",
					"lead_id", lead.LeadID, "error", recErr)
			}
		}
		// Session stays complete (not dispatched); the visitor sees a
		// neutral message and the failure is followed up out-of-band.
		return neutralDispatchReply
	}

	s.LeadDispatched = true
	s.Phase = domain.PhaseDispatched
	m.logger.Info("lead dispatched",
		"client_id", p.ClientID, "session_id", s.SessionID, "lead_id", lead.LeadID)
	return confirmReply
}

func (m *Machine) answer(ctx context.Context, p *domain.ClientProfile, s *domain.Session, text string) string {
	// History excludes the current turn, which was already recorded.
	history := s.RecentHistory(m.historyLimit)
	if n := len(history); n > 0 {
		history = history[:n-1]
	}
	return m.answerer.Answer(ctx, p, history, text)
}
