package server

import (
	"context"
	"fmt"
	"net/http"

	"trip_sentinel/internal/domain/entity"
	"trip_sentinel/pkg/httpx/reply"
	"trip_sentinel/pkg/httpx/req"
	"trip_sentinel/pkg/rest"
)

type budgetService interface {
	Profile() entity.BudgetProfile
	SetBudgetProfile(ctx context.Context, profile entity.BudgetProfile) error
}

type BudgetServer struct {
	budgetService budgetService
}

func NewBudgetServer(budgetService budgetService) BudgetServer {
	return BudgetServer{
		budgetService: budgetService,
	}
}

func (s BudgetServer) getV1Budget(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()

	reply.JSON(ctx, w, http.StatusOK, newRESTBudgetProfile(s.budgetService.Profile()))

	return nil
}

// putV1Budget полная замена профиля. Частичных обновлений нет: клиент читает
// текущий профиль, меняет поля и присылает целиком.
func (s BudgetServer) putV1Budget(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()

	var request rest.BudgetProfile

	if err := req.Read(r, &request); err != nil {
		return fmt.Errorf("req.Read: %w", err)
	}

	if err := s.budgetService.SetBudgetProfile(ctx, newDomainBudgetProfile(request)); err != nil {
		return asFailure(err)
	}

	reply.JSON(ctx, w, http.StatusOK, newRESTBudgetProfile(s.budgetService.Profile()))

	return nil
}
