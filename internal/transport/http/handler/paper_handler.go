package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/CICTstudcoDingle/ictirc-sub002/internal/domain"
	"github.com/CICTstudcoDingle/ictirc-sub002/internal/transport/http/middleware"
	"github.com/CICTstudcoDingle/ictirc-sub002/internal/workflow"
)

type PaperHandler struct {
	wf     *workflow.Engine
	papers domain.PaperRepository
}

func NewPaperHandler(wf *workflow.Engine, papers domain.PaperRepository) *PaperHandler {
	return &PaperHandler{wf: wf, papers: papers}
}

type SubmitIn struct {
	Title    string `json:"title" binding:"required,max=255"`
	Abstract string `json:"abstract"`
	Category string `json:"category" binding:"omitempty,max=64"`
	FileURL  string `json:"fileUrl" binding:"omitempty,max=512"`
	Authors  []struct {
		UserID        string `json:"userId" binding:"required"`
		Corresponding bool   `json:"corresponding"`
	} `json:"authors" binding:"required,min=1"`
}

func (h *PaperHandler) Submit(c *gin.Context, in SubmitIn) (any, error) {
	authors := make([]domain.PaperAuthor, 0, len(in.Authors))
	for _, a := range in.Authors {
		authors = append(authors, domain.PaperAuthor{UserID: a.UserID, Corresponding: a.Corresponding})
	}
	return h.wf.Submit(c.Request.Context(), c.GetString(middleware.KeyUserID), workflow.SubmitInput{
		Title:    in.Title,
		Abstract: in.Abstract,
		Category: in.Category,
		FileURL:  in.FileURL,
		Authors:  authors,
	})
}

type ListQ struct {
	Offset int    `form:"offset,default=0"`
	Limit  int    `form:"limit,default=20"`
	Status string `form:"status"`
}

func (h *PaperHandler) List(c *gin.Context) (any, error) {
	var q ListQ
	if err := c.ShouldBindQuery(&q); err != nil {
		q = ListQ{Limit: 20}
	}
	if q.Limit <= 0 || q.Limit > 100 {
		q.Limit = 20
	}
	papers, total, err := h.papers.List(c.Request.Context(), q.Offset, q.Limit, domain.PaperStatus(q.Status))
	if err != nil {
		return nil, err
	}
	return gin.H{"total": total, "items": papers}, nil
}

// ReviewQueue 当前登录者作为审稿人被指派的论文
func (h *PaperHandler) ReviewQueue(c *gin.Context) (any, error) {
	var q ListQ
	if err := c.ShouldBindQuery(&q); err != nil {
		q = ListQ{Limit: 20}
	}
	if q.Limit <= 0 || q.Limit > 100 {
		q.Limit = 20
	}
	papers, total, err := h.papers.ListByReviewer(c.Request.Context(),
		c.GetString(middleware.KeyUserID), q.Offset, q.Limit)
	if err != nil {
		return nil, err
	}
	return gin.H{"total": total, "items": papers}, nil
}

func (h *PaperHandler) Get(c *gin.Context) (any, error) {
	p, err := h.papers.FindByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, domain.ErrNotFound
	}
	return p, nil
}

type TransitionIn struct {
	To   string `json:"to" binding:"required"`
	Note string `json:"note" binding:"omitempty,max=1000"`
}

// Transition 工作流入口：目标状态 + 可选备注
func (h *PaperHandler) Transition(c *gin.Context, in TransitionIn) (any, error) {
	return h.wf.Transition(c.Request.Context(), c.GetString(middleware.KeyUserID),
		c.Param("id"), domain.PaperStatus(in.To), in.Note)
}

type AssignIn struct {
	ReviewerID string `json:"reviewerId" binding:"required"`
}

func (h *PaperHandler) AssignReviewer(c *gin.Context, in AssignIn) (any, error) {
	err := h.wf.AssignReviewer(c.Request.Context(), c.GetString(middleware.KeyUserID),
		c.Param("id"), in.ReviewerID)
	if err != nil {
		return nil, err
	}
	return gin.H{"paperId": c.Param("id"), "reviewerId": in.ReviewerID}, nil
}

func (h *PaperHandler) RemoveReviewer(c *gin.Context) (any, error) {
	err := h.wf.RemoveReviewer(c.Request.Context(), c.GetString(middleware.KeyUserID),
		c.Param("id"), c.Param("rid"))
	if err != nil {
		return nil, err
	}
	return gin.H{"paperId": c.Param("id")}, nil
}

type CommentIn struct {
	Body string `json:"body" binding:"required,max=4000"`
}

func (h *PaperHandler) Comment(c *gin.Context, in CommentIn) (any, error) {
	return h.wf.AddComment(c.Request.Context(), c.GetString(middleware.KeyUserID),
		c.Param("id"), in.Body)
}

func (h *PaperHandler) Archive(c *gin.Context) (any, error) {
	err := h.wf.Archive(c.Request.Context(), c.GetString(middleware.KeyUserID), c.Param("id"))
	if err != nil {
		return nil, err
	}
	return gin.H{"paperId": c.Param("id")}, nil
}

func (h *PaperHandler) Delete(c *gin.Context) (any, error) {
	err := h.wf.Delete(c.Request.Context(), c.GetString(middleware.KeyUserID), c.Param("id"))
	if err != nil {
		return nil, err
	}
	return gin.H{"paperId": c.Param("id")}, nil
}
