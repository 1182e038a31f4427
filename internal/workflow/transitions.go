package workflow

import "github.com/CICTstudcoDingle/ictirc-sub002/internal/domain"

// 流转表。SUBMITTED 是初态，PUBLISHED/REJECTED 是终态；
// 任何非终态都可以被 REJECTED（撤稿/退稿的出口）。
var transitions = map[domain.PaperStatus][]domain.PaperStatus{
	domain.StatusSubmitted:   {domain.StatusUnderReview, domain.StatusRejected},
	domain.StatusUnderReview: {domain.StatusAccepted, domain.StatusRejected},
	domain.StatusAccepted:    {domain.StatusPublished, domain.StatusRejected},
	domain.StatusRejected:    {},
	domain.StatusPublished:   {},
}

// CanTransition reports whether from -> to is an edge of the table.
func CanTransition(from, to domain.PaperStatus) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// NextStates returns the states reachable from s.
func NextStates(s domain.PaperStatus) []domain.PaperStatus {
	return append([]domain.PaperStatus(nil), transitions[s]...)
}

// actionNames 授权引擎里注册的动作名（最长前缀表的键）
var actionNames = map[domain.PaperStatus]string{
	domain.StatusUnderReview: "paper.transition.review",
	domain.StatusAccepted:    "paper.transition.accept",
	domain.StatusRejected:    "paper.transition.reject",
	domain.StatusPublished:   "paper.transition.publish",
}

func ActionFor(to domain.PaperStatus) string {
	if a, ok := actionNames[to]; ok {
		return a
	}
	return "paper.transition.invalid"
}
