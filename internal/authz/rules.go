package authz

import (
	"sort"
	"strings"

	"github.com/CICTstudcoDingle/ictirc-sub002/internal/domain"
)

// Rule 把一个资源前缀（URL 路径或点分动作名）映射到允许的角色集合。
// 不是最小 rank：不同前缀可以指定互不包含的角色集。
type Rule struct {
	Prefix string
	Roles  []domain.Role
}

func (r Rule) allows(role domain.Role) bool {
	for _, a := range r.Roles {
		if a == role {
			return true
		}
	}
	return false
}

// RuleSet 扁平前缀表，最长匹配优先。资源集合小而静态，
// 排序的前缀列表足够（无需 trie）。
type RuleSet struct {
	rules []Rule
}

func NewRuleSet(rules ...Rule) *RuleSet {
	rs := &RuleSet{rules: append([]Rule(nil), rules...)}
	// 前缀长的在前，匹配时第一个命中即最具体
	sort.SliceStable(rs.rules, func(i, j int) bool {
		return len(rs.rules[i].Prefix) > len(rs.rules[j].Prefix)
	})
	return rs
}

// Match returns the most specific rule whose prefix is a literal prefix
// of resource, or nil when the resource is unprotected.
func (rs *RuleSet) Match(resource string) *Rule {
	for i := range rs.rules {
		if strings.HasPrefix(resource, rs.rules[i].Prefix) {
			return &rs.rules[i]
		}
	}
	return nil
}

var reviewerUp = []domain.Role{domain.RoleReviewer, domain.RoleEditor, domain.RoleDean}
var editorUp = []domain.Role{domain.RoleEditor, domain.RoleDean}
var deanOnly = []domain.Role{domain.RoleDean}

// DefaultRules 路由前缀 + 工作流动作名的默认保护表
func DefaultRules() *RuleSet {
	return NewRuleSet(
		// 路由前缀
		Rule{Prefix: "/admin/v1", Roles: editorUp},
		Rule{Prefix: "/api/v1/review-queue", Roles: reviewerUp},

		// 状态流转（角色要求只取决于目标状态，见流转表）
		Rule{Prefix: "paper.transition.review", Roles: reviewerUp},
		Rule{Prefix: "paper.transition.accept", Roles: editorUp},
		Rule{Prefix: "paper.transition.reject", Roles: editorUp},
		Rule{Prefix: "paper.transition.publish", Roles: editorUp},

		// 非流转的受控动作
		Rule{Prefix: "paper.reviewers.", Roles: editorUp},
		Rule{Prefix: "paper.archive", Roles: editorUp},
		Rule{Prefix: "paper.delete", Roles: deanOnly},
		Rule{Prefix: "user.role", Roles: deanOnly},
		Rule{Prefix: "user.deactivate", Roles: editorUp},
		Rule{Prefix: "user.reactivate", Roles: editorUp},
	)
}
