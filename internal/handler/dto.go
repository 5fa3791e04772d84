package handler

import (
	"time"

	"github.com/hitoshi/snapshare/internal/feed"
	"github.com/hitoshi/snapshare/internal/model"
)

// authorResponse は投稿者・コメント作成者の表示情報。
type authorResponse struct {
	ID         string `json:"id"`
	Username   string `json:"username"`
	FullName   string `json:"full_name"`
	ProfileImg string `json:"profile_img"`
}

// postResponse はフィード上の投稿。
type postResponse struct {
	ID            string         `json:"id"`
	Description   string         `json:"description"`
	Media         string         `json:"media"`
	CreatedAt     time.Time      `json:"created_at"`
	LikeCount     int            `json:"like_count"`
	CommentCount  int            `json:"comment_count"`
	LikedByViewer bool           `json:"liked_by_viewer"`
	Score         float64        `json:"score"`
	Author        authorResponse `json:"author"`
}

// commentNodeResponse はスレッド上のコメント1件。
type commentNodeResponse struct {
	ID              string         `json:"id"`
	PostID          string         `json:"post_id"`
	ParentCommentID *string        `json:"parent_comment_id"`
	RootCommentID   string         `json:"root_comment_id"`
	Depth           int            `json:"depth"`
	Text            string         `json:"text"`
	CreatedAt       time.Time      `json:"created_at"`
	LikeCount       int            `json:"like_count"`
	LikedByViewer   bool           `json:"liked_by_viewer"`
	PriorityTier    int            `json:"priority_tier"`
	Author          authorResponse `json:"author"`
}

type feedItemResponse struct {
	Post     postResponse          `json:"post"`
	Comments []commentNodeResponse `json:"comments"`
}

type feedResponse struct {
	Feed []feedItemResponse `json:"feed"`
}

type commentsResponse struct {
	Comments []commentNodeResponse `json:"comments"`
}

// commentResponse は作成・編集したコメント。
type commentResponse struct {
	ID              string    `json:"id"`
	PostID          string    `json:"post_id"`
	UserID          string    `json:"user_id"`
	ParentCommentID *string   `json:"parent_comment_id"`
	Text            string    `json:"text"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

type followResponse struct {
	FollowerID string    `json:"follower_id"`
	FolloweeID string    `json:"followee_id"`
	Pending    bool      `json:"pending"`
	CreatedAt  time.Time `json:"created_at"`
}

func toFeedResponse(res *feed.Result) feedResponse {
	items := make([]feedItemResponse, len(res.Items))
	for i, it := range res.Items {
		items[i] = feedItemResponse{
			Post:     toPostResponse(it.Post),
			Comments: toCommentNodes(it.Comments),
		}
	}
	return feedResponse{Feed: items}
}

func toPostResponse(p model.ScoredPost) postResponse {
	return postResponse{
		ID:            p.PostID,
		Description:   p.Description,
		Media:         p.Media,
		CreatedAt:     p.CreatedAt,
		LikeCount:     p.LikeCount,
		CommentCount:  p.CommentCount,
		LikedByViewer: p.LikedByViewer,
		Score:         p.Score,
		Author: authorResponse{
			ID:         p.AuthorID,
			Username:   p.AuthorUsername,
			FullName:   p.AuthorFullName,
			ProfileImg: p.AuthorProfileImg,
		},
	}
}

func toCommentNodes(nodes []model.CommentNode) []commentNodeResponse {
	out := make([]commentNodeResponse, len(nodes))
	for i, n := range nodes {
		out[i] = commentNodeResponse{
			ID:              n.CommentID,
			PostID:          n.PostID,
			ParentCommentID: n.ParentCommentID,
			RootCommentID:   n.RootCommentID,
			Depth:           n.Depth,
			Text:            n.Text,
			CreatedAt:       n.CreatedAt,
			LikeCount:       n.LikeCount,
			LikedByViewer:   n.LikedByViewer,
			PriorityTier:    n.PriorityTier,
			Author: authorResponse{
				ID:         n.AuthorID,
				Username:   n.AuthorUsername,
				FullName:   n.AuthorFullName,
				ProfileImg: n.AuthorProfileImg,
			},
		}
	}
	return out
}

func toCommentResponse(c *model.Comment) commentResponse {
	return commentResponse{
		ID:              c.ID,
		PostID:          c.PostID,
		UserID:          c.UserID,
		ParentCommentID: c.ParentCommentID,
		Text:            c.Text,
		CreatedAt:       c.CreatedAt,
		UpdatedAt:       c.UpdatedAt,
	}
}
