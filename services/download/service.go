package download

import (
	"context"
	"fmt"
	"time"

	"designhub-points/pkg/db/option"
	"designhub-points/pkg/errutil"
	"designhub-points/pkg/repository"
	"designhub-points/pkg/task"
	"designhub-points/pkg/taskname"
	"designhub-points/services/antifraud"
	"designhub-points/services/ledger"
	"designhub-points/services/member"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var Module = fx.Module("download",
	fx.Provide(repository.ProvideStore[Resource]),
	fx.Provide(repository.ProvideStore[DownloadEvent]),
	fx.Provide(NewCatalogStorage),
	fx.Provide(NewService),
	fx.Provide(NewHandler),
	fx.Invoke(RegisterRoutes),
)

// FileStorage tells the engine whether the downloadable artifact exists
// and where to fetch it. Storage management itself lives elsewhere.
type FileStorage interface {
	Exists(ctx context.Context, r *Resource) (bool, error)
	URL(ctx context.Context, r *Resource) (string, error)
}

// catalogStorage trusts the catalog's file_path column. Deployments with a
// real object store swap this out.
type catalogStorage struct{}

func NewCatalogStorage() FileStorage { return catalogStorage{} }

func (catalogStorage) Exists(_ context.Context, r *Resource) (bool, error) {
	return r.FilePath != "", nil
}

func (catalogStorage) URL(_ context.Context, r *Resource) (string, error) {
	if r.FilePath == "" {
		return "", errutil.NotFound("FILE_NOT_FOUND", "resource file is missing")
	}
	return r.FilePath, nil
}

type ServiceParams struct {
	fx.In
	DB        *gorm.DB
	Resources repository.Repository[Resource]
	Events    repository.Repository[DownloadEvent]
	Ledger    *ledger.Store
	Members   *member.Service
	Fraud     *antifraud.Service
	Storage   FileStorage
	Enqueuer  task.Enqueuer
	Node      *snowflake.Node
}

// Service is the download decision engine. CheckPermission is the pure
// read path; ExecuteDownload commits the economic effects of one download
// as a single transaction.
type Service struct {
	db        *gorm.DB
	resources repository.Repository[Resource]
	events    repository.Repository[DownloadEvent]
	ledger    *ledger.Store
	members   *member.Service
	fraud     *antifraud.Service
	storage   FileStorage
	enqueuer  task.Enqueuer
	node      *snowflake.Node
}

func NewService(p ServiceParams) *Service {
	return &Service{
		db:        p.DB,
		resources: p.Resources,
		events:    p.Events,
		ledger:    p.Ledger,
		members:   p.Members,
		fraud:     p.Fraud,
		storage:   p.Storage,
		enqueuer:  p.Enqueuer,
		node:      p.Node,
	}
}

func (s *Service) getDownloadableResource(ctx context.Context, resourceID string) (*Resource, error) {
	res, err := s.resources.FindOne(ctx, Resource{ID: resourceID})
	if err != nil {
		return nil, errutil.Internal("failed to load resource", err)
	}
	if res == nil || res.IsDeleted {
		return nil, errutil.NotFound("RESOURCE_NOT_FOUND", "resource does not exist")
	}
	if !res.Downloadable() {
		return nil, errutil.Conflict("RESOURCE_UNAVAILABLE", "resource is not available for download")
	}
	return res, nil
}

// CheckPermission decides whether the user may download the resource and
// at what cost. VIP users download every tier at no cost; everyone else
// pays by tier.
func (s *Service) CheckPermission(ctx context.Context, userID, resourceID string) (*Permission, error) {
	res, err := s.getDownloadableResource(ctx, resourceID)
	if err != nil {
		return nil, err
	}

	user, err := s.members.GetActiveUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	if user.IsVIP(time.Now()) {
		return &Permission{
			CanDownload: true,
			IsFree:      res.PricingType == PricingFree,
			IsVipFree:   res.PricingType != PricingFree,
		}, nil
	}

	switch res.PricingType {
	case PricingFree:
		return &Permission{CanDownload: true, IsFree: true}, nil
	case PricingVIPOnly:
		return &Permission{Reason: "resource is exclusive to VIP members"}, nil
	default:
		acct, err := s.ledger.GetAccount(ctx, userID)
		if err != nil {
			return nil, err
		}
		if acct.Balance < res.Price {
			return &Permission{
				Reason: fmt.Sprintf("insufficient balance: have %d, need %d", acct.Balance, res.Price),
			}, nil
		}
		return &Permission{CanDownload: true, PointsCost: res.Price}, nil
	}
}

// DownloadResult is what ExecuteDownload hands back to the HTTP layer.
type DownloadResult struct {
	EventID    string `json:"eventId"`
	URL        string `json:"url"`
	PointsCost int64  `json:"pointsCost"`
}

// ExecuteDownload charges the downloader, evaluates validity, credits the
// uploader when the download is real economic activity, records the event,
// and bumps the resource counter — all in one transaction. Detector sweeps
// are enqueued after commit.
func (s *Service) ExecuteDownload(ctx context.Context, userID, resourceID, ipAddress, userAgent string) (*DownloadResult, error) {
	res, err := s.getDownloadableResource(ctx, resourceID)
	if err != nil {
		return nil, err
	}

	perm, err := s.CheckPermission(ctx, userID, resourceID)
	if err != nil {
		return nil, err
	}
	if !perm.CanDownload {
		return nil, errutil.Forbidden("DOWNLOAD_DENIED", perm.Reason)
	}

	exists, err := s.storage.Exists(ctx, res)
	if err != nil {
		return nil, errutil.Internal("failed to check resource file", err)
	}
	if !exists {
		return nil, errutil.NotFound("FILE_NOT_FOUND", "resource file is missing")
	}

	verdict, err := s.evaluateValidity(ctx, userID, res)
	if err != nil {
		return nil, err
	}

	downloaderType := downloaderNormal
	if perm.IsVipFree {
		downloaderType = downloaderVIP
	}

	event := DownloadEvent{
		ID:              s.node.Generate().String(),
		DownloaderID:    userID,
		ResourceID:      res.ID,
		UploaderID:      res.UploaderID,
		PointsCost:      perm.PointsCost,
		EarningsAwarded: verdict.IsValid,
		InvalidReason:   verdict.Reason,
		DownloaderType:  downloaderType,
		IPAddress:       ipAddress,
		UserAgent:       userAgent,
		CreatedAt:       time.Now(),
	}

	err = s.ledger.WithTransaction(ctx, func(tx *gorm.DB) error {
		var entries []ledger.Entry

		if perm.PointsCost > 0 {
			entries = append(entries, ledger.Entry{
				UserID:      userID,
				Delta:       -perm.PointsCost,
				ChangeType:  ledger.ChangeConsume,
				Source:      ledger.SourceDownloadResource,
				SourceID:    res.ID,
				Description: fmt.Sprintf("downloaded %q", res.Title),
			})
		}

		if verdict.IsValid {
			if _, err := s.members.WithTrx(tx).GetActiveUser(ctx, res.UploaderID); err != nil {
				// The debit is the binding half; a missing uploader forfeits
				// only the payout.
				zap.L().Error("uploader missing, skipping earnings credit",
					zap.String("resource_id", res.ID),
					zap.String("uploader_id", res.UploaderID),
					zap.Error(err),
				)
				event.EarningsAwarded = false
				event.InvalidReason = "uploader account unavailable"
			} else {
				payout := CalculateEarnings(res.PricingType, res.Price, perm.IsVipFree)
				entries = append(entries, ledger.Entry{
					UserID:      res.UploaderID,
					Delta:       payout,
					ChangeType:  ledger.ChangeEarn,
					Source:      ledger.SourceWorkDownloaded,
					SourceID:    res.ID,
					Description: fmt.Sprintf("%q was downloaded", res.Title),
				})
			}
		}

		if err := s.ledger.ApplyOrdered(ctx, tx, entries); err != nil {
			return err
		}

		if err := s.events.WithTrx(tx).Create(ctx, &event); err != nil {
			return errutil.Internal("failed to record download event", err)
		}

		return tx.Model(&Resource{}).
			Where("id = ?", res.ID).
			UpdateColumn("download_count", gorm.Expr("download_count + 1")).Error
	})
	if err != nil {
		return nil, err
	}

	s.afterDownload(ctx, res.ID, userID, verdict)

	url, err := s.storage.URL(ctx, res)
	if err != nil {
		return nil, err
	}

	return &DownloadResult{
		EventID:    event.ID,
		URL:        url,
		PointsCost: perm.PointsCost,
	}, nil
}

// evaluateValidity gathers the pair's download history and runs the pure
// validity rules over it.
func (s *Service) evaluateValidity(ctx context.Context, userID string, res *Resource) (antifraud.Verdict, error) {
	now := time.Now()
	pair := DownloadEvent{DownloaderID: userID, ResourceID: res.ID, EarningsAwarded: true}

	repeat24h, err := s.events.Count(ctx, pair, option.ApplyOperator{
		Field:    "created_at",
		Operator: ">=",
		Value:    now.Add(-24 * time.Hour),
	})
	if err != nil {
		return antifraud.Verdict{}, errutil.Internal("failed to load download history", err)
	}

	count30d, err := s.events.Count(ctx, pair, option.ApplyOperator{
		Field:    "created_at",
		Operator: ">=",
		Value:    now.Add(-30 * 24 * time.Hour),
	})
	if err != nil {
		return antifraud.Verdict{}, errutil.Internal("failed to load download history", err)
	}

	return antifraud.Evaluate(antifraud.DownloadContext{
		DownloaderID:    userID,
		UploaderID:      res.UploaderID,
		RepeatWithin24h: repeat24h > 0,
		ValidCount30d:   count30d,
	}), nil
}

// afterDownload runs the best-effort post-commit work: detector sweeps and
// self-download alerting. Failures are logged, never surfaced.
func (s *Service) afterDownload(ctx context.Context, resourceID, userID string, verdict antifraud.Verdict) {
	for _, name := range []string{taskname.RiskSweepFrequency, taskname.RiskSweepBurst} {
		t, err := antifraud.NewSweepTask(name, resourceID)
		if err == nil {
			_, err = s.enqueuer.Enqueue(ctx, t)
		}
		if err != nil {
			zap.L().Warn("failed to enqueue detector sweep",
				zap.String("task", name),
				zap.String("resource_id", resourceID),
				zap.Error(err),
			)
		}
	}

	if verdict.RiskType == antifraud.TriggerSelfDownload {
		if err := s.fraud.RaiseSelfDownloadAlert(ctx, resourceID, userID); err != nil {
			zap.L().Warn("failed to raise self-download alert",
				zap.String("resource_id", resourceID),
				zap.Error(err),
			)
		}
	}
}

// GetHistory lists the user's downloads, newest first.
func (s *Service) GetHistory(ctx context.Context, userID string, page, pageSize int) ([]DownloadEvent, int64, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}

	filter := DownloadEvent{DownloaderID: userID}
	total, err := s.events.Count(ctx, filter)
	if err != nil {
		return nil, 0, errutil.Internal("failed to count downloads", err)
	}
	rows, err := s.events.Find(ctx, filter,
		option.WithSortBy{SortBy: "created_at", OrderBy: "desc", Allow: []string{"created_at"}},
		option.WithLimit(pageSize),
		option.WithOffset((page-1)*pageSize),
	)
	if err != nil {
		return nil, 0, errutil.Internal("failed to list downloads", err)
	}
	return rows, total, nil
}
