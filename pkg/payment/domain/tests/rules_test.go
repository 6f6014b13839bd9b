package tests

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"poskernel/pkg/payment/domain/service"
)

func TestDefaultRulesNormalization(t *testing.T) {
	rules := service.DefaultRules()

	canonical, ok := rules.NormalizeTenderType("  cash  ")
	assert.True(t, ok)
	assert.Equal(t, "cash", canonical)

	_, ok = rules.NormalizeTenderType("   ")
	assert.False(t, ok)
}

func TestDefaultRulesOnlyCashIssuesChange(t *testing.T) {
	rules := service.DefaultRules()

	assert.True(t, rules.CanIssueChange("CASH"))
	assert.True(t, rules.CanIssueChange("cash"))
	assert.False(t, rules.CanIssueChange("card"))
	assert.False(t, rules.RequiresExact("cash"))
}

type fakeTenderType struct {
	id            string
	allowsChange  bool
	requiresExact bool
}

func (f fakeTenderType) TenderID() string          { return f.id }
func (f fakeTenderType) AllowsTenderChange() bool  { return f.allowsChange }
func (f fakeTenderType) RequiresExactTender() bool { return f.requiresExact }

func TestStoreAwareRulesExactBeatsAllowsChange(t *testing.T) {
	rules := service.NewStoreAwareRules([]service.TenderTypeLike{
		fakeTenderType{id: "gift-card", allowsChange: true, requiresExact: true},
		fakeTenderType{id: "cash", allowsChange: true, requiresExact: false},
	})

	assert.False(t, rules.CanIssueChange("gift-card"), "RequiresExact must win over AllowsChange")
	assert.True(t, rules.RequiresExact("GIFT-CARD"), "tender ids compare case-insensitively")
	assert.True(t, rules.CanIssueChange("cash"))
}

func TestStoreAwareRulesUnknownTender(t *testing.T) {
	rules := service.NewStoreAwareRules([]service.TenderTypeLike{
		fakeTenderType{id: "cash", allowsChange: true},
	})

	_, ok := rules.NormalizeTenderType("bitcoin")
	assert.False(t, ok)
}
