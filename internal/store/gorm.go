package store

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"hivelog/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{
		db: db,
	}
}

var _ Store = (*GormStore)(nil)

type GormStore struct {
	db *gorm.DB
}

func (g *GormStore) conn(ctx context.Context) *gorm.DB {
	return g.db.WithContext(ctx)
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}

func (g *GormStore) Migrate() error {
	return models.Migrate(g.db)
}

func (g *GormStore) Transaction(ctx context.Context, f func(tx Store) error) error {
	return g.conn(ctx).Transaction(func(tx *gorm.DB) error {
		return f(&GormStore{db: tx})
	})
}

// ---- posts ----

func (g *GormStore) CreatePost(ctx context.Context, post *models.Post) error {
	return g.conn(ctx).Omit(clause.Associations).Create(post).Error
}

func (g *GormStore) GetPost(ctx context.Context, id uint) (*models.Post, error) {
	var post models.Post
	if err := g.conn(ctx).Preload("User").First(&post, id).Error; err != nil {
		return nil, notFound(err)
	}
	return &post, nil
}

func (g *GormStore) GetPostForUpdate(ctx context.Context, id uint) (*models.Post, error) {
	var post models.Post
	if err := g.conn(ctx).Clauses(clause.Locking{Strength: "UPDATE"}).First(&post, id).Error; err != nil {
		return nil, notFound(err)
	}
	return &post, nil
}

func (g *GormStore) ListPosts(ctx context.Context, filter PostFilter) ([]*models.Post, int64, error) {
	query := g.conn(ctx).Model(&models.Post{}).Where("is_active = ?", true)
	if filter.UserID != 0 {
		query = query.Where("user_id = ?", filter.UserID)
	}
	if filter.Stage != "" {
		query = query.Where("stage = ?", filter.Stage)
	}
	if filter.Category != "" {
		query = query.Where("category = ?", filter.Category)
	}
	if filter.Search != "" {
		pattern := "%" + strings.ToLower(filter.Search) + "%"
		query = query.Where("(LOWER(title) LIKE ? OR LOWER(content) LIKE ?)", pattern, pattern)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	// 置顶帖子始终排在前面
	query = query.Order("is_pinned DESC")
	switch filter.Sort {
	case SortPopular:
		query = query.Order("vote_score DESC, created_at DESC")
	case SortTrending:
		query = query.Order("interaction_score DESC, created_at DESC")
	case SortDiscussed:
		query = query.Order("comment_count DESC, created_at DESC")
	default:
		query = query.Order("created_at DESC")
	}

	page, limit := filter.Page, filter.Limit
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}

	var posts []*models.Post
	err := query.Preload("User").Limit(limit).Offset((page - 1) * limit).Find(&posts).Error
	return posts, total, err
}

func (g *GormStore) ListSandboxPosts(ctx context.Context) ([]*models.Post, error) {
	var posts []*models.Post
	err := g.conn(ctx).
		Where("stage = ? AND is_active = ?", models.StageSandbox, true).
		Order("sandbox_start_date ASC, id ASC").
		Find(&posts).Error
	return posts, err
}

func (g *GormStore) SetStageIfCurrent(ctx context.Context, id uint, expected, next models.Stage) (bool, error) {
	res := g.conn(ctx).Model(&models.Post{}).
		Where("id = ? AND stage = ?", id, expected).
		UpdateColumns(map[string]any{"stage": next, "updated_at": time.Now()})
	return res.RowsAffected == 1, res.Error
}

func (g *GormStore) CompleteTransition(ctx context.Context, id uint, at time.Time) (bool, error) {
	res := g.conn(ctx).Model(&models.Post{}).
		Where("id = ? AND stage = ?", id, models.StageProcessing).
		UpdateColumns(map[string]any{
			"stage":            models.StageWiki,
			"sandbox_end_date": at,
			"wiki_version":     1,
			"last_wiki_update": at,
			"updated_at":       at,
		})
	return res.RowsAffected == 1, res.Error
}

func (g *GormStore) SetWikiVersion(ctx context.Context, id uint, version int, at time.Time) error {
	return g.UpdatePostFields(ctx, id, map[string]any{
		"wiki_version":     version,
		"last_wiki_update": at,
	})
}

func (g *GormStore) UpdatePostFields(ctx context.Context, id uint, fields map[string]any) error {
	if _, ok := fields["updated_at"]; !ok {
		fields["updated_at"] = time.Now()
	}
	res := g.conn(ctx).Model(&models.Post{}).Where("id = ?", id).UpdateColumns(fields)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (g *GormStore) SetPostVotes(ctx context.Context, id uint, up, down int) error {
	return g.conn(ctx).Model(&models.Post{}).Where("id = ?", id).UpdateColumns(map[string]any{
		"upvote_count":      up,
		"downvote_count":    down,
		"vote_score":        up - down,
		"interaction_score": gorm.Expr("? * 2 + ? * 1 + comment_count * 3 + view_count * 0.1", up, down),
	}).Error
}

func (g *GormStore) IncrementCommentCount(ctx context.Context, id uint, delta int) error {
	return g.conn(ctx).Model(&models.Post{}).Where("id = ?", id).UpdateColumns(map[string]any{
		"comment_count":     gorm.Expr("comment_count + ?", delta),
		"interaction_score": gorm.Expr("upvote_count * 2 + downvote_count * 1 + (comment_count + ?) * 3 + view_count * 0.1", delta),
	}).Error
}

func (g *GormStore) IncrementViewCount(ctx context.Context, id uint) error {
	return g.conn(ctx).Model(&models.Post{}).Where("id = ?", id).
		UpdateColumn("view_count", gorm.Expr("view_count + 1")).Error
}

func (g *GormStore) RefreshInteractionScore(ctx context.Context, ids ...uint) error {
	if len(ids) == 0 {
		return nil
	}
	return g.conn(ctx).Model(&models.Post{}).Where("id IN ?", ids).
		UpdateColumn("interaction_score", gorm.Expr(models.InteractionScoreExpr)).Error
}

// ---- comments ----

func (g *GormStore) CreateComment(ctx context.Context, comment *models.Comment) error {
	return g.conn(ctx).Omit(clause.Associations).Create(comment).Error
}

func (g *GormStore) GetComment(ctx context.Context, id uint) (*models.Comment, error) {
	var comment models.Comment
	if err := g.conn(ctx).Preload("User").First(&comment, id).Error; err != nil {
		return nil, notFound(err)
	}
	return &comment, nil
}

func (g *GormStore) GetCommentForUpdate(ctx context.Context, id uint) (*models.Comment, error) {
	var comment models.Comment
	if err := g.conn(ctx).Clauses(clause.Locking{Strength: "UPDATE"}).First(&comment, id).Error; err != nil {
		return nil, notFound(err)
	}
	return &comment, nil
}

// qualityColumns 与 models.ClassifyQuality 等价的 SQL
func qualityColumns(score, length clause.Expr) map[string]any {
	return map[string]any{
		"quality_score":   gorm.Expr("? + ? / 100.0", score, length),
		"is_high_quality": gorm.Expr("CASE WHEN ? > 10 OR (? > 200 AND ? > 5) THEN TRUE ELSE FALSE END", score, length, score),
	}
}

func updateComment(query *gorm.DB, fields map[string]any) (int64, error) {
	fields["updated_at"] = time.Now()
	res := query.Model(&models.Comment{}).UpdateColumns(fields)
	return res.RowsAffected, res.Error
}

func (g *GormStore) SetCommentVotes(ctx context.Context, id uint, up, down int) error {
	fields := qualityColumns(gorm.Expr("?", up-down), gorm.Expr("LENGTH(content)"))
	fields["upvote_count"] = up
	fields["downvote_count"] = down
	fields["vote_score"] = up - down

	n, err := updateComment(g.conn(ctx).Where("id = ?", id), fields)
	if err == nil && n == 0 {
		return ErrNotFound
	}
	return err
}

func (g *GormStore) EditComment(ctx context.Context, id uint, content string, at time.Time) error {
	fields := qualityColumns(gorm.Expr("vote_score"), gorm.Expr("?", utf8.RuneCountInString(content)))
	fields["content"] = content
	fields["is_edited"] = true
	fields["edited_at"] = at

	n, err := updateComment(g.conn(ctx).Where("id = ? AND is_deleted = ?", id, false), fields)
	if err == nil && n == 0 {
		return ErrNotFound
	}
	return err
}

func (g *GormStore) SoftDeleteComment(ctx context.Context, id uint, at time.Time) (bool, error) {
	fields := qualityColumns(gorm.Expr("vote_score"), gorm.Expr("?", utf8.RuneCountInString(models.DeletedCommentPlaceholder)))
	fields["content"] = models.DeletedCommentPlaceholder
	fields["is_deleted"] = true
	fields["deleted_at"] = at

	n, err := updateComment(g.conn(ctx).Where("id = ? AND is_deleted = ?", id, false), fields)
	return n == 1, err
}

func (g *GormStore) ListCommentsByUser(ctx context.Context, userID uint, page, limit int) ([]*models.Comment, int64, error) {
	query := g.conn(ctx).Model(&models.Comment{}).Where("user_id = ? AND is_deleted = ?", userID, false)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var comments []*models.Comment
	err := query.Preload("User").
		Order("created_at DESC, id DESC").
		Limit(limit).Offset((page - 1) * limit).
		Find(&comments).Error
	return comments, total, err
}

func (g *GormStore) ListCommentsByPost(ctx context.Context, postID uint, includeDeleted bool) ([]*models.Comment, error) {
	query := g.conn(ctx).Preload("User").Where("post_id = ?", postID)
	if !includeDeleted {
		query = query.Where("is_deleted = ?", false)
	}

	var comments []*models.Comment
	err := query.Order("created_at ASC, id ASC").Find(&comments).Error
	return comments, err
}

func (g *GormStore) ListHighQualityCommentsSince(ctx context.Context, postID uint, since time.Time, limit int) ([]*models.Comment, error) {
	var comments []*models.Comment
	err := g.conn(ctx).Preload("User").
		Where("post_id = ? AND is_high_quality = ? AND is_deleted = ? AND created_at > ?", postID, true, false, since).
		Order("vote_score DESC, created_at DESC").
		Limit(limit).
		Find(&comments).Error
	return comments, err
}

// ---- votes ----

func (g *GormStore) GetVote(ctx context.Context, userID uint, target models.TargetType, targetID uint) (*models.Vote, error) {
	var vote models.Vote
	err := g.conn(ctx).
		Where("user_id = ? AND target_type = ? AND target_id = ?", userID, target, targetID).
		First(&vote).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &vote, nil
}

func (g *GormStore) ClearVote(ctx context.Context, userID uint, target models.TargetType, targetID uint) error {
	return g.conn(ctx).
		Where("user_id = ? AND target_type = ? AND target_id = ?", userID, target, targetID).
		Delete(&models.Vote{}).Error
}

func (g *GormStore) PutVote(ctx context.Context, vote *models.Vote) error {
	return g.conn(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "target_type"}, {Name: "target_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"value"}),
	}).Create(vote).Error
}

func (g *GormStore) CountVotes(ctx context.Context, target models.TargetType, targetID uint) (int, int, error) {
	type row struct {
		Value int
		N     int
	}
	var rows []row
	err := g.conn(ctx).Model(&models.Vote{}).
		Select("value, COUNT(*) AS n").
		Where("target_type = ? AND target_id = ?", target, targetID).
		Group("value").
		Scan(&rows).Error
	if err != nil {
		return 0, 0, err
	}

	var up, down int
	for _, r := range rows {
		switch r.Value {
		case 1:
			up = r.N
		case -1:
			down = r.N
		}
	}
	return up, down, nil
}

func (g *GormStore) ListUserVotes(ctx context.Context, userID uint, target models.TargetType, targetIDs []uint) (map[uint]models.VoteType, error) {
	result := make(map[uint]models.VoteType)
	if len(targetIDs) == 0 {
		return result, nil
	}

	var votes []models.Vote
	err := g.conn(ctx).
		Where("user_id = ? AND target_type = ? AND target_id IN ?", userID, target, targetIDs).
		Find(&votes).Error
	if err != nil {
		return nil, err
	}
	for i := range votes {
		result[votes[i].TargetID] = votes[i].Type()
	}
	return result, nil
}

// ---- wikis ----

func (g *GormStore) CreateWiki(ctx context.Context, wiki *models.Wiki) error {
	return g.conn(ctx).Omit(clause.Associations).Create(wiki).Error
}

func (g *GormStore) GetWiki(ctx context.Context, id uint) (*models.Wiki, error) {
	var wiki models.Wiki
	if err := g.conn(ctx).First(&wiki, id).Error; err != nil {
		return nil, notFound(err)
	}
	return &wiki, nil
}

func (g *GormStore) GetWikiByPost(ctx context.Context, postID uint) (*models.Wiki, error) {
	var wiki models.Wiki
	if err := g.conn(ctx).Where("post_id = ?", postID).First(&wiki).Error; err != nil {
		return nil, notFound(err)
	}
	return &wiki, nil
}

// UpdateWikiIfVersion 乐观锁：只有库里版本仍是 expected 时才写入
func (g *GormStore) UpdateWikiIfVersion(ctx context.Context, wiki *models.Wiki, expected int) (bool, error) {
	res := g.conn(ctx).Model(wiki).
		Where("version = ?", expected).
		Select("summary", "opinions", "key_points", "pending_questions", "conclusion",
			"version", "generated_at", "completeness", "verification_status",
			"previous_versions", "updated_at").
		Updates(wiki)
	return res.RowsAffected == 1, res.Error
}

func (g *GormStore) SetVerificationStatus(ctx context.Context, id uint, status models.VerificationStatus) error {
	res := g.conn(ctx).Model(&models.Wiki{}).Where("id = ?", id).
		UpdateColumns(map[string]any{"verification_status": status, "updated_at": time.Now()})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// ---- users ----

func (g *GormStore) CreateUser(ctx context.Context, user *models.User) error {
	return g.conn(ctx).Create(user).Error
}

func (g *GormStore) GetUser(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	if err := g.conn(ctx).First(&user, id).Error; err != nil {
		return nil, notFound(err)
	}
	return &user, nil
}

func (g *GormStore) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	if err := g.conn(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		return nil, notFound(err)
	}
	return &user, nil
}

func (g *GormStore) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	var user models.User
	if err := g.conn(ctx).Where("username = ?", username).First(&user).Error; err != nil {
		return nil, notFound(err)
	}
	return &user, nil
}

func (g *GormStore) UpdateUserProfile(ctx context.Context, id uint, bio, avatar *string) error {
	fields := map[string]any{"updated_at": time.Now()}
	if bio != nil {
		fields["bio"] = *bio
	}
	if avatar != nil {
		fields["avatar"] = *avatar
	}
	res := g.conn(ctx).Model(&models.User{}).Where("id = ?", id).UpdateColumns(fields)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (g *GormStore) SetUserActive(ctx context.Context, id uint, active bool) error {
	res := g.conn(ctx).Model(&models.User{}).Where("id = ?", id).Update("is_active", active)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// AddKarma 使用事务添加声望并记录明细
func (g *GormStore) AddKarma(ctx context.Context, userID uint, amount int, action string) error {
	return g.conn(ctx).Transaction(func(tx *gorm.DB) error {
		// 1. 创建明细记录
		entry := models.KarmaLog{
			UserID: userID,
			Amount: amount,
			Action: action,
		}
		if err := tx.Create(&entry).Error; err != nil {
			return err
		}

		// 2. 更新用户余额
		return tx.Model(&models.User{}).
			Where("id = ?", userID).
			UpdateColumn("karma", gorm.Expr("karma + ?", amount)).
			Error
	})
}

// ---- notifications ----

func (g *GormStore) CreateNotification(ctx context.Context, n *models.Notification) error {
	return g.conn(ctx).Omit(clause.Associations).Create(n).Error
}

func (g *GormStore) ListNotifications(ctx context.Context, userID uint, unreadOnly bool, limit int) ([]*models.Notification, error) {
	query := g.conn(ctx).Where("user_id = ?", userID)
	if unreadOnly {
		query = query.Where("is_read = ?", false)
	}
	if limit < 1 {
		limit = 50
	}

	var list []*models.Notification
	err := query.Order("created_at DESC").Limit(limit).Find(&list).Error
	return list, err
}

func (g *GormStore) CountUnread(ctx context.Context, userID uint) (int64, error) {
	var count int64
	err := g.conn(ctx).Model(&models.Notification{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		Count(&count).Error
	return count, err
}

func (g *GormStore) MarkNotificationRead(ctx context.Context, id, userID uint) error {
	res := g.conn(ctx).Model(&models.Notification{}).
		Where("id = ? AND user_id = ?", id, userID).
		Update("is_read", true)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (g *GormStore) MarkAllNotificationsRead(ctx context.Context, userID uint) error {
	return g.conn(ctx).Model(&models.Notification{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		Update("is_read", true).Error
}

func (g *GormStore) DeleteNotification(ctx context.Context, id, userID uint) error {
	res := g.conn(ctx).Where("id = ? AND user_id = ?", id, userID).Delete(&models.Notification{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (g *GormStore) DeleteAllNotifications(ctx context.Context, userID uint) error {
	return g.conn(ctx).Where("user_id = ?", userID).Delete(&models.Notification{}).Error
}
