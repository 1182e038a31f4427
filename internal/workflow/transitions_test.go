package workflow

import (
	"math/rand"
	"testing"

	"github.com/CICTstudcoDingle/ictirc-sub002/internal/domain"
)

var allStatuses = []domain.PaperStatus{
	domain.StatusSubmitted,
	domain.StatusUnderReview,
	domain.StatusAccepted,
	domain.StatusRejected,
	domain.StatusPublished,
}

func TestTransitionTable(t *testing.T) {
	allowed := map[[2]domain.PaperStatus]bool{
		{domain.StatusSubmitted, domain.StatusUnderReview}: true,
		{domain.StatusSubmitted, domain.StatusRejected}:    true,
		{domain.StatusUnderReview, domain.StatusAccepted}:  true,
		{domain.StatusUnderReview, domain.StatusRejected}:  true,
		{domain.StatusAccepted, domain.StatusPublished}:    true,
		{domain.StatusAccepted, domain.StatusRejected}:     true,
	}

	// 全 5x5 边矩阵：表里没有的边一律拒绝
	for _, from := range allStatuses {
		for _, to := range allStatuses {
			want := allowed[[2]domain.PaperStatus{from, to}]
			if got := CanTransition(from, to); got != want {
				t.Fatalf("CanTransition(%s, %s) = %v, want %v", from, to, got, want)
			}
		}
	}
}

func TestTerminalStatesHaveNoExits(t *testing.T) {
	for _, s := range []domain.PaperStatus{domain.StatusPublished, domain.StatusRejected} {
		if !s.Terminal() {
			t.Fatalf("%s should be terminal", s)
		}
		if next := NextStates(s); len(next) != 0 {
			t.Fatalf("terminal state %s has exits %v", s, next)
		}
	}
}

func TestRandomWalkStaysInsideTheGraph(t *testing.T) {
	rng := rand.New(rand.NewSource(1))

	for walk := 0; walk < 200; walk++ {
		cur := domain.StatusSubmitted
		for step := 0; step < 10; step++ {
			next := NextStates(cur)
			if cur.Terminal() {
				if len(next) != 0 {
					t.Fatalf("terminal %s offered next states %v", cur, next)
				}
				break
			}
			if len(next) == 0 {
				t.Fatalf("non-terminal %s has no exit", cur)
			}
			to := next[rng.Intn(len(next))]
			if !to.Valid() {
				t.Fatalf("walk reached invalid status %q", to)
			}
			if !CanTransition(cur, to) {
				t.Fatalf("NextStates and CanTransition disagree on %s -> %s", cur, to)
			}
			cur = to
		}
	}
}

func TestActionForTargetsEveryReachableStatus(t *testing.T) {
	cases := map[domain.PaperStatus]string{
		domain.StatusUnderReview: "paper.transition.review",
		domain.StatusAccepted:    "paper.transition.accept",
		domain.StatusRejected:    "paper.transition.reject",
		domain.StatusPublished:   "paper.transition.publish",
	}
	for to, want := range cases {
		if got := ActionFor(to); got != want {
			t.Fatalf("ActionFor(%s) = %q, want %q", to, got, want)
		}
	}
}
