package access

// Action is the audit action recorded for a decision.
type Action string

const (
	ActionView Action = "view"
	ActionDeny Action = "deny"
)

// Decision reasons. They are user visible and stored as audit justification.
const (
	ReasonAdministrator           = "administrator access"
	ReasonOwner                   = "resource owner"
	ReasonOwnerEngaged            = "resource owner with active engagement"
	ReasonActiveRelationship      = "active business relationship"
	ReasonPendingEngagement       = "pending engagement — contact protected"
	ReasonPublicListing           = "public listing access"
	ReasonAnonymous               = "anonymous directory access"
	ReasonRelationshipUnavailable = "relationship check unavailable"
	ReasonAuditUnavailable        = "audit unavailable — disclosure withheld"
	ReasonTypeMismatch            = "resource type mismatch"
)

// Decision is the immutable outcome of one policy evaluation.
type Decision struct {
	visible   TierSet
	reason    string
	shouldLog bool
	anonymous bool
	action    Action
}

// VisibleTiers returns the tiers the caller may see.
func (d Decision) VisibleTiers() TierSet { return d.visible }

// Reason is the human readable justification.
func (d Decision) Reason() string { return d.reason }

// ShouldLog reports whether the disclosure must be audited.
func (d Decision) ShouldLog() bool { return d.shouldLog }

// AnonymousOnly restricts public fields to those marked anonymous.
func (d Decision) AnonymousOnly() bool { return d.anonymous }

// Action is the audit action (view or deny).
func (d Decision) Action() Action { return d.action }

// Allows reports whether a field of the given class is visible.
func (d Decision) Allows(fc FieldClass) bool {
	if !d.visible.Has(fc.Tier) {
		return false
	}
	if d.anonymous && !fc.Anonymous {
		return false
	}
	return true
}

// PublicOnly builds a fail-closed decision exposing the public tier.
func PublicOnly(reason string, shouldLog bool, action Action) Decision {
	return Decision{visible: publicOnly, reason: reason, shouldLog: shouldLog, action: action}
}

type ruleInput struct {
	principal Principal
	facts     Facts
	directory bool
}

// rule returns a decision and true when it applies; false passes evaluation
// to the next rule.
type rule func(in ruleInput) (Decision, bool)

// rules are evaluated in order, the first match wins.
var rules = []rule{
	adminRule,
	ownerRule,
	engagedCounterpartyRule,
	pendingCounterpartyRule,
	authenticatedRule,
	anonymousRule,
}

// Engine evaluates the disclosure rules. It holds no mutable state; every
// decision is a function of its arguments and the classifier snapshot.
type Engine struct {
	classifier *Classifier
}

// NewEngine constructs an Engine.
func NewEngine(classifier *Classifier) *Engine {
	return &Engine{classifier: classifier}
}

// Decide evaluates the rules for principal against res.
func (e *Engine) Decide(principal Principal, rt ResourceType, res Resource, facts Facts) Decision {
	if res != nil && res.Type() != rt {
		return PublicOnly(ReasonTypeMismatch, false, ActionDeny)
	}
	in := ruleInput{
		principal: principal,
		facts:     facts,
		directory: e.classifier.IsDirectory(rt),
	}
	for _, r := range rules {
		if d, ok := r(in); ok {
			return d
		}
	}
	return anonymousDecision()
}

func adminRule(in ruleInput) (Decision, bool) {
	if !in.facts.IsAdmin {
		return Decision{}, false
	}
	return Decision{visible: allTiers, reason: ReasonAdministrator, shouldLog: true, action: ActionView}, true
}

func ownerRule(in ruleInput) (Decision, bool) {
	if !in.facts.IsOwner {
		return Decision{}, false
	}
	if in.facts.HasAcceptedEngagement {
		return Decision{visible: allTiers, reason: ReasonOwnerEngaged, shouldLog: true, action: ActionView}, true
	}
	return Decision{visible: upToRestricted, reason: ReasonOwner, action: ActionView}, true
}

func engagedCounterpartyRule(in ruleInput) (Decision, bool) {
	if !in.facts.IsCounterparty || !in.facts.HasAcceptedEngagement {
		return Decision{}, false
	}
	return Decision{visible: allTiers, reason: ReasonActiveRelationship, shouldLog: true, action: ActionView}, true
}

func pendingCounterpartyRule(in ruleInput) (Decision, bool) {
	if !in.facts.IsCounterparty {
		return Decision{}, false
	}
	return Decision{visible: publicOnly, reason: ReasonPendingEngagement, action: ActionView}, true
}

func authenticatedRule(in ruleInput) (Decision, bool) {
	if !in.principal.Authenticated() {
		return Decision{}, false
	}
	if in.directory {
		return Decision{visible: publicOnly, reason: ReasonPublicListing, action: ActionView}, true
	}
	// Private resources without a relationship are explicit denials.
	return Decision{visible: publicOnly, reason: ReasonPublicListing, shouldLog: true, action: ActionDeny}, true
}

func anonymousRule(in ruleInput) (Decision, bool) {
	return anonymousDecision(), true
}

func anonymousDecision() Decision {
	return Decision{visible: publicOnly, reason: ReasonAnonymous, anonymous: true, action: ActionView}
}
