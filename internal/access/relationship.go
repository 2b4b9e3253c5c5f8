package access

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrRelationshipUnavailable is returned when relationship facts could not be
// determined in time. Callers must fall back to public-only visibility.
var ErrRelationshipUnavailable = errors.New("access: relationship check unavailable")

// DefaultRelationshipTimeout bounds link lookups when none is configured.
const DefaultRelationshipTimeout = 300 * time.Millisecond

// Facts are the relationship facts between a principal and one resource.
// They are derived per request and never cached.
type Facts struct {
	IsOwner               bool
	IsCounterparty        bool
	HasAcceptedEngagement bool
	IsAdmin               bool
}

// Link is an engagement record (delivery request, delivery, acknowledgement)
// joining a viewer to a directory listing.
type Link struct {
	Kind   ResourceType
	Status string
}

// LinkFinder reads the engagement records between a profile and a listing.
type LinkFinder interface {
	Links(ctx context.Context, profileID string, rt ResourceType, resourceID string) ([]Link, error)
}

var engagedStatuses = map[ResourceType]map[string]struct{}{
	ResourceDelivery: {
		"confirmed":  {},
		"dispatched": {},
		"in_transit": {},
		"delivered":  {},
	},
	ResourceDeliveryRequest: {
		"accepted": {},
	},
	ResourceAcknowledgement: {
		"acknowledged": {},
		"paid":         {},
	},
	ResourceCamera: {
		"active": {},
	},
}

// IsEngaged reports whether status is in the engaged set of the resource type.
func IsEngaged(rt ResourceType, status string) bool {
	_, ok := engagedStatuses[rt][status]
	return ok
}

// Resolver derives Facts from the current state of a resource.
type Resolver struct {
	links      LinkFinder
	classifier *Classifier
	timeout    time.Duration
}

// NewResolver constructs a Resolver. A non-positive timeout selects
// DefaultRelationshipTimeout.
func NewResolver(links LinkFinder, classifier *Classifier, timeout time.Duration) *Resolver {
	if timeout <= 0 {
		timeout = DefaultRelationshipTimeout
	}
	return &Resolver{links: links, classifier: classifier, timeout: timeout}
}

// Resolve computes the facts for principal against res. On a lookup failure
// or timeout it returns zero Facts and an error wrapping
// ErrRelationshipUnavailable.
func (r *Resolver) Resolve(ctx context.Context, principal Principal, res Resource) (Facts, error) {
	facts := Facts{IsAdmin: principal.IsAdmin()}
	if !principal.Authenticated() {
		return facts, nil
	}
	facts.IsOwner = res.OwnerRef() != "" && res.OwnerRef() == principal.ProfileID
	for _, ref := range res.CounterpartyRefs() {
		if ref == principal.ProfileID {
			facts.IsCounterparty = true
			break
		}
	}

	if !r.classifier.IsDirectory(res.Type()) {
		facts.HasAcceptedEngagement = IsEngaged(res.Type(), res.LifecycleStatus())
		return facts, nil
	}

	// A listing holds only its owner's data.
	if facts.IsOwner {
		facts.HasAcceptedEngagement = true
		return facts, nil
	}
	if facts.IsAdmin {
		return facts, nil
	}

	links, err := r.lookup(ctx, principal.ProfileID, res)
	if err != nil {
		return Facts{}, err
	}
	for _, link := range links {
		facts.IsCounterparty = true
		if IsEngaged(link.Kind, link.Status) {
			facts.HasAcceptedEngagement = true
		}
	}
	return facts, nil
}

type linkResult struct {
	links []Link
	err   error
}

func (r *Resolver) lookup(ctx context.Context, profileID string, res Resource) ([]Link, error) {
	if r.links == nil {
		return nil, fmt.Errorf("%w: link finder not configured", ErrRelationshipUnavailable)
	}
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	resultChan := make(chan linkResult, 1)
	go func() {
		links, err := r.links.Links(ctx, profileID, res.Type(), res.ResourceID())
		resultChan <- linkResult{links: links, err: err}
	}()
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: %v", ErrRelationshipUnavailable, ctx.Err())
	case result := <-resultChan:
		if result.err != nil {
			return nil, fmt.Errorf("%w: %v", ErrRelationshipUnavailable, result.err)
		}
		return result.links, nil
	}
}
