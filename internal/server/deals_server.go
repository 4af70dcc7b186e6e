package server

import (
	"context"
	"fmt"
	"net/http"

	"trip_sentinel/internal/domain/entity"
	"trip_sentinel/pkg/httpx/reply"
	"trip_sentinel/pkg/httpx/req"
	"trip_sentinel/pkg/lox"
	"trip_sentinel/pkg/rest"
)

type dealService interface {
	Deals() []entity.TrackedDeal
	Deal(dealID string) (entity.TrackedDeal, error)
	Ingest(ctx context.Context, deal entity.Deal) error
}

type attemptService interface {
	Attempts() []entity.BookingAttempt
	AttemptByDeal(dealID string) (entity.BookingAttempt, error)
}

type DealServer struct {
	dealService    dealService
	attemptService attemptService
}

func NewDealServer(dealService dealService, attemptService attemptService) DealServer {
	return DealServer{
		dealService:    dealService,
		attemptService: attemptService,
	}
}

func (s DealServer) getV1Deals(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()

	reply.JSON(ctx, w, http.StatusOK, lox.Map(s.dealService.Deals(), newRESTTrackedDeal))

	return nil
}

// postV1Deals ручной инжест сделки в обход фида: демо и отладка.
func (s DealServer) postV1Deals(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()

	var request rest.Deal

	if err := req.Read(r, &request); err != nil {
		return fmt.Errorf("req.Read: %w", err)
	}

	deal, err := newDomainDeal(request)
	if err != nil {
		return asFailure(err)
	}

	if err := s.dealService.Ingest(ctx, deal); err != nil {
		return asFailure(err)
	}

	reply.Created(w)

	return nil
}

func (s DealServer) getV1Deal(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()

	tracked, err := s.dealService.Deal(r.PathValue("id"))
	if err != nil {
		return asFailure(err)
	}

	reply.JSON(ctx, w, http.StatusOK, newRESTTrackedDeal(tracked))

	return nil
}

func (s DealServer) getV1DealAttempt(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()

	attempt, err := s.attemptService.AttemptByDeal(r.PathValue("id"))
	if err != nil {
		return asFailure(err)
	}

	reply.JSON(ctx, w, http.StatusOK, newRESTBookingAttempt(attempt))

	return nil
}

func (s DealServer) getV1Attempts(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()

	reply.JSON(ctx, w, http.StatusOK, lox.Map(s.attemptService.Attempts(), newRESTBookingAttempt))

	return nil
}
