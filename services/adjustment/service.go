package adjustment

import (
	"context"
	"fmt"
	"strings"
	"time"

	"designhub-points/pkg/config"
	"designhub-points/pkg/db/option"
	"designhub-points/pkg/errutil"
	"designhub-points/pkg/repository"
	"designhub-points/services/ledger"
	"designhub-points/services/member"
	"designhub-points/services/notification"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var Module = fx.Module("adjustment",
	fx.Provide(repository.ProvideStore[AdjustmentLog]),
	fx.Provide(NewApprovalConfig),
	fx.Provide(NewService),
	fx.Provide(NewHandler),
	fx.Invoke(RegisterRoutes),
)

const (
	reasonMinLen = 20
	reasonMaxLen = 200
)

// ApprovalConfig carries the thresholds that gate and bound admin
// adjustments. It is injected at construction; there is no mutable global.
type ApprovalConfig struct {
	SinglePointsThreshold int64
	BatchUserThreshold    int
	MaxSingleAdjustment   int64
	RevokeWindow          time.Duration
}

func NewApprovalConfig(cfg *config.Config) ApprovalConfig {
	return ApprovalConfig{
		SinglePointsThreshold: cfg.Points.SinglePointsThreshold,
		BatchUserThreshold:    cfg.Points.BatchUserThreshold,
		MaxSingleAdjustment:   cfg.Points.MaxSingleAdjustment,
		RevokeWindow:          cfg.Points.RevokeWindow,
	}
}

// RequiresApproval reports whether a second human sign-off is needed
// before the adjustment runs. The service only exposes the predicate; the
// admin surface enforces it.
func (c ApprovalConfig) RequiresApproval(amount int64, userCount int) bool {
	if amount < 0 {
		amount = -amount
	}
	return amount >= c.SinglePointsThreshold || userCount >= c.BatchUserThreshold
}

type ServiceParams struct {
	fx.In
	DB       *gorm.DB
	Logs     repository.Repository[AdjustmentLog]
	Ledger   *ledger.Store
	Members  *member.Service
	Notifier notification.Notifier
	Approval ApprovalConfig
	Node     *snowflake.Node
}

// Service is the admin adjustment controller: validated, bounded,
// audited, and revocable balance changes.
type Service struct {
	db       *gorm.DB
	logs     repository.Repository[AdjustmentLog]
	ledger   *ledger.Store
	members  *member.Service
	notifier notification.Notifier
	approval ApprovalConfig
	node     *snowflake.Node
}

func NewService(p ServiceParams) *Service {
	return &Service{
		db:       p.DB,
		logs:     p.Logs,
		ledger:   p.Ledger,
		members:  p.Members,
		notifier: p.Notifier,
		approval: p.Approval,
		node:     p.Node,
	}
}

func (s *Service) Approval() ApprovalConfig { return s.approval }

func (s *Service) changeTypeFor(typ AdjustmentType) ledger.ChangeType {
	switch typ {
	case AdjustDeduct:
		return ledger.ChangeAdminDeduct
	case AdjustGift, AdjustBatchGift:
		return ledger.ChangeAdminGift
	default:
		return ledger.ChangeAdminAdd
	}
}

// AdjustUserPoints applies one admin balance change as a single atomic
// transaction: the account mutation, the ledger record, and the audit log
// commit together or not at all.
func (s *Service) AdjustUserPoints(ctx context.Context, adminID, targetUserID string, typ AdjustmentType, amount int64, reason string) (*AdjustmentLog, error) {
	if !typ.valid() {
		return nil, errutil.BadRequest("INVALID_TYPE", "unknown adjustment type")
	}
	if amount <= 0 {
		return nil, errutil.BadRequest("INVALID_AMOUNT", "adjustment amount must be positive")
	}

	reason = strings.TrimSpace(reason)
	if n := len([]rune(reason)); n < reasonMinLen || n > reasonMaxLen {
		return nil, errutil.BadRequest("POINTS_008",
			fmt.Sprintf("reason must be %d-%d characters", reasonMinLen, reasonMaxLen))
	}

	if amount > s.approval.MaxSingleAdjustment {
		return nil, errutil.BadRequest("EXCEED_LIMIT",
			fmt.Sprintf("adjustment exceeds the %d point ceiling", s.approval.MaxSingleAdjustment))
	}

	if _, err := s.members.GetActiveUser(ctx, targetUserID); err != nil {
		return nil, err
	}

	delta := amount
	if typ == AdjustDeduct {
		delta = -amount
	}

	logID := s.node.Generate().String()
	entry := ledger.Entry{
		UserID:      targetUserID,
		Delta:       delta,
		ChangeType:  s.changeTypeFor(typ),
		Source:      ledger.SourceAdminAdjustment,
		SourceID:    logID,
		Description: reason,
	}

	var logRow *AdjustmentLog
	err := s.ledger.WithTransaction(ctx, func(tx *gorm.DB) error {
		if typ == AdjustDeduct {
			acct, err := s.ledger.GetAccountWith(ctx, tx, targetUserID)
			if err != nil {
				return err
			}
			if acct.Balance < amount {
				return errutil.BadRequest("INSUFFICIENT_BALANCE",
					fmt.Sprintf("insufficient balance: have %d, need %d", acct.Balance, amount))
			}
		}

		acct, err := s.ledger.Apply(ctx, tx, entry)
		if err != nil {
			return err
		}

		logRow = &AdjustmentLog{
			ID:             logID,
			AdminID:        adminID,
			TargetUserID:   targetUserID,
			AdjustmentType: typ,
			PointsChange:   delta,
			PointsBefore:   acct.Balance - delta,
			PointsAfter:    acct.Balance,
			Reason:         reason,
			CreatedAt:      time.Now(),
		}
		if err := s.logs.WithTrx(tx).Create(ctx, logRow); err != nil {
			return errutil.Internal("failed to write adjustment log", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.notifier.Notify(ctx, targetUserID, "points adjusted",
		fmt.Sprintf("an administrator changed your points by %+d: %s", delta, reason))

	zap.L().Info("admin adjustment applied",
		zap.String("log_id", logRow.ID),
		zap.String("admin_id", adminID),
		zap.String("target_user_id", targetUserID),
		zap.Int64("delta", delta),
	)
	return logRow, nil
}

// BatchGiftPoints credits each member independently. One failing member
// never aborts the batch; the result reports both counts and every
// failure.
func (s *Service) BatchGiftPoints(ctx context.Context, adminID string, userIDs []string, amount int64, reason string) (*BatchResult, error) {
	if len(userIDs) == 0 {
		return nil, errutil.BadRequest("INVALID_REQUEST", "no target users given")
	}

	result := &BatchResult{}
	for _, userID := range userIDs {
		if _, err := s.AdjustUserPoints(ctx, adminID, userID, AdjustBatchGift, amount, reason); err != nil {
			result.FailedCount++
			result.Failures = append(result.Failures, BatchFailure{
				UserID: userID,
				Reason: err.Error(),
			})
			continue
		}
		result.SuccessCount++
	}
	return result, nil
}

// RevokeAdjustment reverses a prior adjustment inside the revocation
// window. A grant that has been partially spent can no longer be clawed
// back.
func (s *Service) RevokeAdjustment(ctx context.Context, logID, adminID, revokeReason string) (*AdjustmentLog, error) {
	var revoked *AdjustmentLog
	err := s.ledger.WithTransaction(ctx, func(tx *gorm.DB) error {
		logs := s.logs.WithTrx(tx)

		logRow, err := logs.FindOne(ctx, AdjustmentLog{ID: logID}, option.WithLockingUpdate())
		if err != nil {
			return errutil.Internal("failed to load adjustment log", err)
		}
		if logRow == nil {
			return errutil.NotFound("LOG_NOT_FOUND", "adjustment log does not exist")
		}
		if logRow.IsRevoked {
			return errutil.Conflict("ALREADY_REVOKED", "adjustment has already been revoked")
		}
		if time.Since(logRow.CreatedAt) > s.approval.RevokeWindow {
			return errutil.BadRequest("POINTS_010", "revocation window has passed")
		}

		entry := ledger.Entry{
			UserID:      logRow.TargetUserID,
			Delta:       -logRow.PointsChange,
			ChangeType:  ledger.ChangeAdminRevoke,
			Source:      ledger.SourceAdminAdjustment,
			SourceID:    logRow.ID,
			Description: revokeReason,
		}

		if logRow.PointsChange > 0 {
			acct, err := s.ledger.GetAccountWith(ctx, tx, logRow.TargetUserID)
			if err != nil {
				return err
			}
			if acct.Balance < logRow.PointsChange {
				return errutil.Conflict("POINTS_CONSUMED",
					"granted points have been partially spent and cannot be revoked")
			}
			entry.TotalDelta = -logRow.PointsChange
		}

		if _, err := s.ledger.Apply(ctx, tx, entry); err != nil {
			return err
		}

		now := time.Now()
		logRow.IsRevoked = true
		logRow.RevokedAt = &now
		logRow.RevokedBy = adminID
		logRow.RevokeReason = revokeReason
		if err := logs.Update(ctx, logRow); err != nil {
			return errutil.Internal("failed to mark adjustment revoked", err)
		}
		revoked = logRow
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.notifier.Notify(ctx, revoked.TargetUserID, "points adjustment revoked",
		fmt.Sprintf("a prior adjustment of %+d points was revoked: %s", revoked.PointsChange, revokeReason))

	return revoked, nil
}

func (s *Service) GetAdjustment(ctx context.Context, logID string) (*AdjustmentLog, error) {
	logRow, err := s.logs.FindOne(ctx, AdjustmentLog{ID: logID})
	if err != nil {
		return nil, errutil.Internal("failed to load adjustment log", err)
	}
	if logRow == nil {
		return nil, errutil.NotFound("LOG_NOT_FOUND", "adjustment log does not exist")
	}
	return logRow, nil
}

func (s *Service) ListAdjustments(ctx context.Context, targetUserID, adminID string, page, pageSize int) ([]AdjustmentLog, int64, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}

	filter := AdjustmentLog{TargetUserID: targetUserID, AdminID: adminID}
	total, err := s.logs.Count(ctx, filter)
	if err != nil {
		return nil, 0, errutil.Internal("failed to count adjustment logs", err)
	}
	rows, err := s.logs.Find(ctx, filter,
		option.WithSortBy{SortBy: "created_at", OrderBy: "desc", Allow: []string{"created_at"}},
		option.WithLimit(pageSize),
		option.WithOffset((page-1)*pageSize),
	)
	if err != nil {
		return nil, 0, errutil.Internal("failed to list adjustment logs", err)
	}
	return rows, total, nil
}
