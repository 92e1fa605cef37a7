package engagement

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// maxToggleAttempts limita as repetições quando outro pedido do mesmo
// usuário grava o voto entre o DELETE e o INSERT.
const maxToggleAttempts = 3

// CastVote alterna o voto do usuário na reclamação. O voto e o lançamento de
// pontos (+2 ao votar, -2 ao retirar) são gravados na mesma transação.
func (s *Service) CastVote(ctx context.Context, userID, complaintID uuid.UUID) (VoteResult, error) {
	var res VoteResult
	err := s.inTx(ctx, func(ctx context.Context, tx Tx, out *outbox) error {
		if _, err := s.activeUser(ctx, tx, userID); err != nil {
			return err
		}
		if _, err := tx.GetComplaint(ctx, complaintID); err != nil {
			if errors.Is(err, ErrNotFound) {
				return fmt.Errorf("reclamação %s: %w", complaintID, ErrNotFound)
			}
			return err
		}

		voted, err := s.toggleVote(ctx, tx, userID, complaintID)
		if err != nil {
			return err
		}

		action := ActionVoteRetracted
		if voted {
			action = ActionVoteCast
		}
		delta, _ := action.Delta()
		points, err := s.applyPoints(ctx, tx, out, userID, delta, action)
		if err != nil {
			return err
		}

		if voted {
			badges, err := s.awardActivity(ctx, tx, out, userID, MetricVotes)
			if err != nil {
				return err
			}
			points.Badges = append(points.Badges, badges...)
		}

		count, err := tx.CountVotes(ctx, complaintID)
		if err != nil {
			return err
		}
		res = VoteResult{Voted: voted, VoteCount: count, Points: points}
		return nil
	})
	if err != nil {
		return VoteResult{}, err
	}

	event := "vote_retracted"
	if res.Voted {
		event = "vote_cast"
	}
	s.logger.Info().
		Str("user_id", userID.String()).
		Str("complaint_id", complaintID.String()).
		Int("vote_count", res.VoteCount).
		Msg(event)
	return res, nil
}

// toggleVote remove o voto existente ou grava um novo. Se o INSERT perder a
// corrida para outro pedido do mesmo usuário, o estado final desejado por
// aquele pedido já está gravado e esta chamada vira remoção.
func (s *Service) toggleVote(ctx context.Context, tx Tx, userID, complaintID uuid.UUID) (bool, error) {
	for attempt := 0; attempt < maxToggleAttempts; attempt++ {
		removed, err := tx.DeleteVote(ctx, userID, complaintID)
		if err != nil {
			return false, err
		}
		if removed {
			return false, nil
		}

		err = tx.InsertVote(ctx, userID, complaintID, s.now().UTC())
		if err == nil {
			return true, nil
		}
		if !errors.Is(err, ErrDuplicate) {
			return false, err
		}
		s.logger.Debug().
			Str("user_id", userID.String()).
			Str("complaint_id", complaintID.String()).
			Msg("voto concorrente detectado, repetindo como remoção")
	}
	return false, fmt.Errorf("voto em disputa: %w", ErrDuplicate)
}
