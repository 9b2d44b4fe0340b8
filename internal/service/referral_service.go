package service

import (
	"errors"
	"fmt"
	"time"

	"github.com/uplink-rewards/internal/constants"
	"github.com/uplink-rewards/internal/logger"
	"github.com/uplink-rewards/internal/models"
	"github.com/uplink-rewards/internal/repository"

	"gorm.io/gorm"
)

// ancestorWalkHardCap 不限层级遍历时的安全上限，超过即视为数据异常
const ancestorWalkHardCap = 10000

// ReferralService 推荐关系服务
type ReferralService struct {
	repo     repository.ReferralRepository
	userRepo repository.UserRepository
}

// NewReferralService 创建推荐关系服务
func NewReferralService(repo repository.ReferralRepository, userRepo repository.UserRepository) *ReferralService {
	return &ReferralService{repo: repo, userRepo: userRepo}
}

// ReferralSignupEvent 注册绑定事件，ParentUserID 为 0 表示无推荐人
type ReferralSignupEvent struct {
	ID           string    `json:"id"`
	UserID       uint      `json:"user_id"`
	ParentUserID uint      `json:"parent_user_id"`
	OccurredAt   time.Time `json:"occurred_at"`
}

// TeamOverview 团队概览
type TeamOverview struct {
	UserID        uint             `json:"user_id"`
	ParentUserID  uint             `json:"parent_user_id,omitempty"`
	DirectCount   int64            `json:"direct_count"`
	DownlineCount int64            `json:"downline_count"`
	Levels        []TeamLevelCount `json:"levels"`
}

// TeamLevelCount 某一层级的下级人数
type TeamLevelCount struct {
	Level int   `json:"level"`
	Count int64 `json:"count"`
}

// RegisterUser 登记用户
func (s *ReferralService) RegisterUser(userID uint) error {
	if userID == 0 {
		return ErrUserIDInvalid
	}
	_, err := s.userRepo.Ensure(userID, time.Now())
	return err
}

// HandleSignupEvent 处理注册绑定事件，同一推荐人重放视为成功
func (s *ReferralService) HandleSignupEvent(event ReferralSignupEvent) error {
	if err := s.RegisterUser(event.UserID); err != nil {
		return err
	}
	if event.ParentUserID == 0 {
		return nil
	}
	err := s.AddEdge(event.UserID, event.ParentUserID)
	if errors.Is(err, ErrDuplicateParent) {
		edge, getErr := s.repo.GetParentEdge(event.UserID)
		if getErr != nil {
			return getErr
		}
		if edge != nil && edge.ParentUserID == event.ParentUserID {
			return nil
		}
	}
	return err
}

// AddEdge 绑定推荐关系，child 已有上级或形成环时拒绝
func (s *ReferralService) AddEdge(childUserID, parentUserID uint) error {
	if childUserID == 0 || parentUserID == 0 {
		return ErrUserIDInvalid
	}
	if childUserID == parentUserID {
		return ErrCycleDetected
	}

	now := time.Now()
	return s.repo.Transaction(func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		userRepo := s.userRepo.WithTx(tx)

		for _, id := range []uint{childUserID, parentUserID} {
			if _, err := userRepo.Ensure(id, now); err != nil {
				return err
			}
		}
		// 按 ID 顺序锁定双方，同一对用户的并发绑定串行执行
		if _, err := userRepo.ListByIDsForUpdate(sortedPair(childUserID, parentUserID)); err != nil {
			return err
		}

		existing, err := repo.GetParentEdge(childUserID)
		if err != nil {
			return err
		}
		if existing != nil {
			return ErrDuplicateParent
		}

		ancestors, err := walkAncestors(repo, parentUserID, 0)
		if err != nil {
			return err
		}
		for _, id := range ancestors {
			if id == childUserID {
				return ErrCycleDetected
			}
		}

		created, err := repo.CreateEdgeIfAbsent(&models.ReferralEdge{
			ChildUserID:  childUserID,
			ParentUserID: parentUserID,
			CreatedAt:    now,
		})
		if err != nil {
			return err
		}
		if !created {
			return ErrDuplicateParent
		}
		return nil
	})
}

// GetAncestors 返回上级链（由近及远），maxDepth <= 0 表示不限层级。
// 链路异常时返回已遍历的部分结果与 ErrGraphIntegrity。
func (s *ReferralService) GetAncestors(userID uint, maxDepth int) ([]uint, error) {
	ancestors, err := walkAncestors(s.repo, userID, maxDepth)
	if errors.Is(err, ErrGraphIntegrity) {
		logger.Named("referral").Warnw("graph_integrity_truncated",
			"user_id", userID,
			"max_depth", maxDepth,
			"partial_depth", len(ancestors),
			"error", err,
		)
	}
	return ancestors, err
}

// ListDirectReferrals 分页查询直推下级
func (s *ReferralService) ListDirectReferrals(userID uint, page, pageSize int) ([]models.ReferralEdge, int64, error) {
	if userID == 0 {
		return nil, 0, ErrUserIDInvalid
	}
	return s.repo.ListChildren(repository.ReferralListFilter{
		ParentUserID: userID,
		Page:         page,
		PageSize:     pageSize,
	})
}

// GetTeamOverview 统计各层级下级人数（最多 CommissionMaxDepth 层）
func (s *ReferralService) GetTeamOverview(userID uint) (*TeamOverview, error) {
	if userID == 0 {
		return nil, ErrUserIDInvalid
	}
	overview := &TeamOverview{UserID: userID, Levels: make([]TeamLevelCount, 0, constants.CommissionMaxDepth)}

	parent, err := s.repo.GetParentEdge(userID)
	if err != nil {
		return nil, err
	}
	if parent != nil {
		overview.ParentUserID = parent.ParentUserID
	}

	visited := map[uint]struct{}{userID: {}}
	frontier := []uint{userID}
	for level := 1; level <= constants.CommissionMaxDepth && len(frontier) > 0; level++ {
		children, err := s.repo.ListChildIDs(frontier)
		if err != nil {
			return nil, err
		}
		next := make([]uint, 0, len(children))
		for _, id := range children {
			if _, ok := visited[id]; ok {
				continue
			}
			visited[id] = struct{}{}
			next = append(next, id)
		}
		if len(next) == 0 {
			break
		}
		overview.Levels = append(overview.Levels, TeamLevelCount{Level: level, Count: int64(len(next))})
		overview.DownlineCount += int64(len(next))
		if level == 1 {
			overview.DirectCount = int64(len(next))
		}
		frontier = next
	}
	return overview, nil
}

// walkAncestors 沿 child -> parent 逐级向上，检测环与超长链
func walkAncestors(repo repository.ReferralRepository, userID uint, maxDepth int) ([]uint, error) {
	if userID == 0 {
		return []uint{}, nil
	}
	limit := maxDepth
	if limit <= 0 {
		limit = ancestorWalkHardCap
	}

	ancestors := make([]uint, 0, min(limit, constants.CommissionMaxDepth))
	visited := map[uint]struct{}{userID: {}}
	current := userID
	for len(ancestors) < limit {
		edge, err := repo.GetParentEdge(current)
		if err != nil {
			return ancestors, err
		}
		if edge == nil {
			return ancestors, nil
		}
		if _, ok := visited[edge.ParentUserID]; ok {
			return ancestors, fmt.Errorf("%w: user %d revisited from %d", ErrGraphIntegrity, edge.ParentUserID, current)
		}
		visited[edge.ParentUserID] = struct{}{}
		ancestors = append(ancestors, edge.ParentUserID)
		current = edge.ParentUserID
	}

	if maxDepth <= 0 {
		// 不限层级时仍有上级说明链长超过安全上限
		edge, err := repo.GetParentEdge(current)
		if err != nil {
			return ancestors, err
		}
		if edge != nil {
			return ancestors, fmt.Errorf("%w: chain exceeds %d levels", ErrGraphIntegrity, ancestorWalkHardCap)
		}
	}
	return ancestors, nil
}

func sortedPair(a, b uint) []uint {
	if a > b {
		return []uint{b, a}
	}
	return []uint{a, b}
}
