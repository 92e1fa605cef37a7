package engagement

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/gestaozabele/reclamacidade/internal/complaint"
	"github.com/gestaozabele/reclamacidade/internal/notify"
)

// RecordComplaintCreated credita o autor pela nova reclamação e avalia as
// conquistas de reclamações. O crédito sai uma vez por reclamação; repetir a
// chamada devolve o saldo atual com AlreadyAwarded. actorID uuid.Nil identifica
// integração confiável; qualquer outro ator precisa ser gestor da cidade.
func (s *Service) RecordComplaintCreated(ctx context.Context, actorID, complaintID uuid.UUID) (PointsResult, error) {
	var res PointsResult
	err := s.inTx(ctx, func(ctx context.Context, tx Tx, out *outbox) error {
		c, err := tx.LockComplaint(ctx, complaintID)
		if err != nil {
			return wrapComplaintErr(complaintID, err)
		}
		if actorID != uuid.Nil {
			if _, err := s.manager(ctx, tx, actorID, c.City); err != nil {
				return err
			}
		}
		if _, err := s.loadUser(ctx, tx, c.OwnerID); err != nil {
			return err
		}

		awarded, err := tx.ComplaintAwarded(ctx, c.ID, ActionComplaintCreated)
		if err != nil {
			return err
		}
		if awarded {
			acc, err := tx.GetAccount(ctx, c.OwnerID)
			if err != nil {
				return err
			}
			res = PointsResult{
				CurrentPoints:  acc.CurrentPoints,
				TotalPoints:    acc.TotalPoints,
				Level:          acc.Level,
				AlreadyAwarded: true,
			}
			return nil
		}

		res, err = s.applyComplaintPoints(ctx, tx, out, c, ActionComplaintCreated)
		if err != nil {
			return err
		}
		badges, err := s.awardActivity(ctx, tx, out, c.OwnerID, MetricComplaints)
		if err != nil {
			return err
		}
		res.Badges = append(res.Badges, badges...)
		return nil
	})
	return res, err
}

// ChangeComplaintStatus troca o status a pedido de um gestor da cidade.
// A primeira entrada em resolved grava resolved_at, credita o autor e
// notifica; sair de resolved limpa resolved_at.
func (s *Service) ChangeComplaintStatus(ctx context.Context, actorID, complaintID uuid.UUID, next complaint.Status) (StatusChange, error) {
	next, err := complaint.ParseStatus(string(next))
	if err != nil {
		return StatusChange{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	var res StatusChange
	err = s.inTx(ctx, func(ctx context.Context, tx Tx, out *outbox) error {
		c, err := tx.LockComplaint(ctx, complaintID)
		if err != nil {
			return wrapComplaintErr(complaintID, err)
		}
		if _, err := s.manager(ctx, tx, actorID, c.City); err != nil {
			return err
		}

		now := s.now()
		resolvedAt, entered := c.Transition(next, now)
		if err := tx.SetComplaintStatus(ctx, c.ID, next, resolvedAt); err != nil {
			return err
		}
		res = StatusChange{ComplaintID: c.ID, Status: string(next), ResolvedAt: resolvedAt}
		if !entered {
			return nil
		}

		delta, _ := ActionComplaintResolved.Delta()
		points, err := s.applyComplaintPoints(ctx, tx, out, c, ActionComplaintResolved)
		if err != nil {
			return err
		}
		badges, err := s.awardActivity(ctx, tx, out, c.OwnerID, MetricResolved)
		if err != nil {
			return err
		}
		points.Badges = append(points.Badges, badges...)
		res.OwnerPoints = &points
		res.Badges = points.Badges

		cid := c.ID
		ev := notify.NewEvent(c.OwnerID, notify.KindComplaintResolved,
			"Sua reclamação foi resolvida",
			fmt.Sprintf("A reclamação de %s foi marcada como resolvida. Você ganhou %d pontos.", c.Category, delta),
			map[string]any{"complaint_id": cid.String(), "points": delta}, now)
		ev.ComplaintID = &cid
		out.add(ev)
		return nil
	})
	return res, err
}

func wrapComplaintErr(id uuid.UUID, err error) error {
	if errors.Is(err, ErrNotFound) {
		return fmt.Errorf("reclamação %s: %w", id, ErrNotFound)
	}
	return err
}
