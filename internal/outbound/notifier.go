package outbound

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/CICTstudcoDingle/ictirc-sub002/internal/domain"
)

// Notifier 在 ACCEPTED/REJECTED/PUBLISHED 时给论文作者发站内通知 + 邮件。
// 通知服务失败绝不影响已提交的流转。
type Notifier struct {
	mailer *Mailer // nil 时只落库
	notes  domain.NotificationRepository
	users  domain.UserRepository
	log    *zap.Logger
}

func NewNotifier(mailer *Mailer, notes domain.NotificationRepository, users domain.UserRepository, log *zap.Logger) *Notifier {
	return &Notifier{mailer: mailer, notes: notes, users: users, log: log}
}

var decisionText = map[domain.PaperStatus]struct {
	kind  string
	title string
}{
	domain.StatusAccepted:  {"success", "Paper accepted"},
	domain.StatusRejected:  {"warning", "Paper rejected"},
	domain.StatusPublished: {"success", "Paper published"},
}

func (n *Notifier) NotifyDecision(p *domain.Paper, to domain.PaperStatus) {
	txt, ok := decisionText[to]
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	msg := fmt.Sprintf("%q is now %s.", p.Title, to)
	if to == domain.StatusPublished && p.DOI != nil {
		msg = fmt.Sprintf("%q has been published with DOI %s.", p.Title, *p.DOI)
	}

	var emails []string
	for _, a := range p.Authors {
		note := &domain.Notification{
			UserID:  a.UserID,
			Title:   txt.title,
			Message: msg,
			Type:    txt.kind,
			PaperID: &p.ID,
		}
		if err := n.notes.Create(ctx, note); err != nil {
			n.log.Warn("notification row dropped", zap.String("paper", p.ID), zap.Error(err))
		}
		if u, err := n.users.FindByID(ctx, a.UserID); err == nil && u != nil {
			emails = append(emails, u.Email)
		}
	}

	if n.mailer != nil {
		body := fmt.Sprintf("<p>%s</p>", msg)
		if err := n.mailer.Send(emails, txt.title, body); err != nil {
			n.log.Warn("decision mail dropped", zap.String("paper", p.ID), zap.Error(err))
		}
	}
}
