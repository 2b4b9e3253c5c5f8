package audit

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrFilterRequired indicates neither a resource nor an actor was given.
var ErrFilterRequired = errors.New("audit: resource or actor filter required")

// Reader provides the read side of the audit store.
type Reader interface {
	ListByResource(ctx context.Context, resourceType, resourceID string, limit, offset int) ([]Event, error)
	ListByActor(ctx context.Context, actorProfileID string, limit, offset int) ([]Event, error)
}

// Service serves compliance review queries.
type Service struct {
	repo Reader
}

// NewService builds a review service.
func NewService(repo Reader) *Service {
	return &Service{repo: repo}
}

// Review returns one page of events matching filters.
func (s *Service) Review(ctx context.Context, filters Filters) (Result, error) {
	if s.repo == nil {
		return Result{}, fmt.Errorf("audit: repository not configured")
	}
	pageSize := filters.PageSize
	if pageSize <= 0 {
		pageSize = 20
	}
	if pageSize > 50 {
		pageSize = 50
	}
	page := filters.Page
	if page <= 0 {
		page = 1
	}
	offset := (page - 1) * pageSize

	var (
		events []Event
		err    error
	)
	resourceType := strings.TrimSpace(filters.ResourceType)
	resourceID := strings.TrimSpace(filters.ResourceID)
	actor := strings.TrimSpace(filters.ActorProfileID)
	switch {
	case resourceType != "" && resourceID != "":
		events, err = s.repo.ListByResource(ctx, resourceType, resourceID, pageSize+1, offset)
	case actor != "":
		events, err = s.repo.ListByActor(ctx, actor, pageSize+1, offset)
	default:
		return Result{}, ErrFilterRequired
	}
	if err != nil {
		return Result{}, err
	}

	hasNext := len(events) > pageSize
	if hasNext {
		events = events[:pageSize]
	}
	paging := PagingInfo{Page: page, PageSize: pageSize, HasNext: hasNext}
	if page > 1 {
		paging.PrevPage = page - 1
	}
	if hasNext {
		paging.NextPage = page + 1
	}
	return Result{Events: events, Paging: paging}, nil
}
