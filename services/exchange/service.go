package exchange

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

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

var Module = fx.Module("exchange",
	fx.Provide(repository.ProvideStore[Product]),
	fx.Provide(repository.ProvideStore[ExchangeRecord]),
	fx.Provide(repository.ProvideStore[ExchangeAuditLog]),
	fx.Provide(NewService),
	fx.Provide(NewHandler),
	fx.Invoke(RegisterRoutes),
)

type ServiceParams struct {
	fx.In
	DB       *gorm.DB
	Products repository.Repository[Product]
	Records  repository.Repository[ExchangeRecord]
	Audits   repository.Repository[ExchangeAuditLog]
	Ledger   *ledger.Store
	Members  *member.Service
	Notifier notification.Notifier
	Node     *snowflake.Node
}

// Service converts points into inventory-backed rewards. Balance, record,
// and stock always move in one transaction.
type Service struct {
	db       *gorm.DB
	products repository.Repository[Product]
	records  repository.Repository[ExchangeRecord]
	audits   repository.Repository[ExchangeAuditLog]
	ledger   *ledger.Store
	members  *member.Service
	notifier notification.Notifier
	node     *snowflake.Node
}

func NewService(p ServiceParams) *Service {
	return &Service{
		db:       p.DB,
		products: p.Products,
		records:  p.Records,
		audits:   p.Audits,
		ledger:   p.Ledger,
		members:  p.Members,
		notifier: p.Notifier,
		node:     p.Node,
	}
}

func (s *Service) audit(ctx context.Context, tx *gorm.DB, recordID, action, operatorID string, detail any) error {
	body, _ := json.Marshal(detail)
	return s.audits.WithTrx(tx).Create(ctx, &ExchangeAuditLog{
		ID:         s.node.Generate().String(),
		RecordID:   recordID,
		Action:     action,
		OperatorID: operatorID,
		Detail:     datatypesJSON(body),
		CreatedAt:  time.Now(),
	})
}

type ExchangeResult struct {
	ExchangeID string `json:"exchangeId"`
	Balance    int64  `json:"pointsBalance"`
}

// Exchange debits the user, creates the record, and takes one unit of
// stock atomically. Unlimited stock (-1) is never touched.
func (s *Service) Exchange(ctx context.Context, userID, productID string, audit AuditInfo, address json.RawMessage) (*ExchangeResult, error) {
	if _, err := s.members.GetActiveUser(ctx, userID); err != nil {
		return nil, err
	}

	var result *ExchangeResult
	err := s.ledger.WithTransaction(ctx, func(tx *gorm.DB) error {
		products := s.products.WithTrx(tx)

		product, err := products.FindOne(ctx, Product{ID: productID}, option.WithLockingUpdate())
		if err != nil {
			return errutil.Internal("failed to load product", err)
		}
		if product == nil {
			return errutil.NotFound("PRODUCT_NOT_FOUND", "product does not exist")
		}
		if !product.Active() {
			return errutil.Conflict("PRODUCT_UNAVAILABLE", "product is not available for exchange")
		}
		if product.Stock == 0 {
			return errutil.Conflict("OUT_OF_STOCK", "product is out of stock")
		}

		recordID := s.node.Generate().String()
		acct, err := s.ledger.Apply(ctx, tx, ledger.Entry{
			UserID:      userID,
			Delta:       -product.PointsRequired,
			ChangeType:  ledger.ChangeExchange,
			Source:      ledger.SourcePointsExchange,
			SourceID:    recordID,
			Description: fmt.Sprintf("exchanged for %q", product.Name),
		})
		if err != nil {
			return err
		}

		record := ExchangeRecord{
			ID:             recordID,
			UserID:         userID,
			ProductID:      product.ID,
			PointsCost:     product.PointsRequired,
			Status:         StatusSuccess,
			DeliveryStatus: DeliveryNotShipped,
			Address:        datatypesJSON(address),
			IPAddress:      audit.IPAddress,
			DeviceInfo:     audit.DeviceInfo,
			CreatedAt:      time.Now(),
			UpdatedAt:      time.Now(),
		}
		if err := s.records.WithTrx(tx).Create(ctx, &record); err != nil {
			return errutil.Internal("failed to create exchange record", err)
		}

		if product.Stock != UnlimitedStock {
			if err := tx.Model(&Product{}).
				Where("id = ?", product.ID).
				UpdateColumn("stock", gorm.Expr("stock - 1")).Error; err != nil {
				return errutil.Internal("failed to decrement stock", err)
			}
		}

		if err := s.audit(ctx, tx, recordID, "exchange", userID, map[string]any{
			"productId":  product.ID,
			"pointsCost": product.PointsRequired,
		}); err != nil {
			return errutil.Internal("failed to write audit log", err)
		}

		result = &ExchangeResult{ExchangeID: recordID, Balance: acct.Balance}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.notifier.Notify(ctx, userID, "exchange successful",
		fmt.Sprintf("your exchange %s has been created", result.ExchangeID))

	return result, nil
}

// Rollback refunds an exchange. Refunded records and completed deliveries
// are final.
func (s *Service) Rollback(ctx context.Context, exchangeID, operatorID, reason string) (*ExchangeRecord, error) {
	var refunded *ExchangeRecord
	err := s.ledger.WithTransaction(ctx, func(tx *gorm.DB) error {
		records := s.records.WithTrx(tx)

		record, err := records.FindOne(ctx, ExchangeRecord{ID: exchangeID}, option.WithLockingUpdate())
		if err != nil {
			return errutil.Internal("failed to load exchange record", err)
		}
		if record == nil {
			return errutil.NotFound("EXCHANGE_NOT_FOUND", "exchange record does not exist")
		}
		if record.Status == StatusRefunded {
			return errutil.Conflict("ALREADY_REFUNDED", "exchange has already been refunded")
		}
		if record.Status == StatusSuccess && record.DeliveryStatus == DeliveryCompleted {
			return errutil.Conflict("DELIVERY_COMPLETED", "completed deliveries cannot be refunded")
		}

		if _, err := s.ledger.Apply(ctx, tx, ledger.Entry{
			UserID:      record.UserID,
			Delta:       record.PointsCost,
			ChangeType:  ledger.ChangeRefund,
			Source:      ledger.SourceExchangeRefund,
			SourceID:    record.ID,
			Description: reason,
		}); err != nil {
			return err
		}

		now := time.Now()
		record.Status = StatusRefunded
		record.RefundReason = reason
		record.RefundedAt = &now
		record.UpdatedAt = now
		if err := records.Update(ctx, record); err != nil {
			return errutil.Internal("failed to update exchange record", err)
		}

		product, err := s.products.WithTrx(tx).FindOne(ctx, Product{ID: record.ProductID}, option.WithLockingUpdate())
		if err != nil {
			return errutil.Internal("failed to load product", err)
		}
		if product != nil && product.Stock != UnlimitedStock {
			if err := tx.Model(&Product{}).
				Where("id = ?", product.ID).
				UpdateColumn("stock", gorm.Expr("stock + 1")).Error; err != nil {
				return errutil.Internal("failed to restore stock", err)
			}
		}

		if err := s.audit(ctx, tx, record.ID, "rollback", operatorID, map[string]any{
			"reason": reason,
		}); err != nil {
			return errutil.Internal("failed to write audit log", err)
		}

		refunded = record
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.notifier.Notify(ctx, refunded.UserID, "exchange refunded",
		fmt.Sprintf("your exchange %s was refunded: %s", refunded.ID, reason))

	zap.L().Info("exchange rolled back",
		zap.String("exchange_id", refunded.ID),
		zap.String("operator_id", operatorID),
	)
	return refunded, nil
}

// Ship advances the delivery state and records the tracking number.
// Delivery only moves forward.
func (s *Service) Ship(ctx context.Context, exchangeID, operatorID, trackingNumber string, deliveryStatus int) (*ExchangeRecord, error) {
	if deliveryStatus != DeliveryShipped && deliveryStatus != DeliveryCompleted {
		return nil, errutil.BadRequest("INVALID_STATUS", "unknown delivery status")
	}

	var shipped *ExchangeRecord
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		records := s.records.WithTrx(tx)

		record, err := records.FindOne(ctx, ExchangeRecord{ID: exchangeID}, option.WithLockingUpdate())
		if err != nil {
			return errutil.Internal("failed to load exchange record", err)
		}
		if record == nil {
			return errutil.NotFound("EXCHANGE_NOT_FOUND", "exchange record does not exist")
		}
		if record.Status != StatusSuccess {
			return errutil.Conflict("INVALID_STATE", "only successful exchanges can be shipped")
		}
		if deliveryStatus <= record.DeliveryStatus {
			return errutil.Conflict("INVALID_STATE", "delivery status cannot move backwards")
		}

		record.DeliveryStatus = deliveryStatus
		if trackingNumber != "" {
			record.TrackingNumber = trackingNumber
		}
		record.UpdatedAt = time.Now()
		if err := records.Update(ctx, record); err != nil {
			return errutil.Internal("failed to update exchange record", err)
		}

		if err := s.audit(ctx, tx, record.ID, "ship", operatorID, map[string]any{
			"deliveryStatus": deliveryStatus,
			"trackingNumber": trackingNumber,
		}); err != nil {
			return errutil.Internal("failed to write audit log", err)
		}

		shipped = record
		return nil
	})
	if err != nil {
		return nil, err
	}
	return shipped, nil
}

func (s *Service) GetRecord(ctx context.Context, exchangeID string) (*ExchangeRecord, error) {
	record, err := s.records.FindOne(ctx, ExchangeRecord{ID: exchangeID})
	if err != nil {
		return nil, errutil.Internal("failed to load exchange record", err)
	}
	if record == nil {
		return nil, errutil.NotFound("EXCHANGE_NOT_FOUND", "exchange record does not exist")
	}
	return record, nil
}

func (s *Service) ListRecords(ctx context.Context, userID string, page, pageSize int) ([]ExchangeRecord, int64, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}

	filter := ExchangeRecord{UserID: userID}
	total, err := s.records.Count(ctx, filter)
	if err != nil {
		return nil, 0, errutil.Internal("failed to count exchange records", err)
	}
	rows, err := s.records.Find(ctx, filter,
		option.WithSortBy{SortBy: "created_at", OrderBy: "desc", Allow: []string{"created_at"}},
		option.WithLimit(pageSize),
		option.WithOffset((page-1)*pageSize),
	)
	if err != nil {
		return nil, 0, errutil.Internal("failed to list exchange records", err)
	}
	return rows, total, nil
}

func (s *Service) ListAuditLogs(ctx context.Context, recordID string, page, pageSize int) ([]ExchangeAuditLog, int64, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}

	filter := ExchangeAuditLog{RecordID: recordID}
	total, err := s.audits.Count(ctx, filter)
	if err != nil {
		return nil, 0, errutil.Internal("failed to count audit logs", err)
	}
	rows, err := s.audits.Find(ctx, filter,
		option.WithSortBy{SortBy: "created_at", OrderBy: "desc", Allow: []string{"created_at"}},
		option.WithLimit(pageSize),
		option.WithOffset((page-1)*pageSize),
	)
	if err != nil {
		return nil, 0, errutil.Internal("failed to list audit logs", err)
	}
	return rows, total, nil
}
