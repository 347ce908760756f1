package classifier

import (
	"testing"

	"github.com/cuemby/clanrelay/pkg/types"
	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		text string
		want types.Category
	}{
		{"combat quest", "Alice completed a combat quest!", types.CategoryCombatQuestCompleted},
		{"skilling quest", "Alice completed a skilling quest!", types.CategorySkillingQuestCompleted},
		{"vault deposit", "Bob added 500x Gold.", types.CategoryVaultDeposit},
		{"vault deposit multi-word item", "Bob added 3x Raw Lobster.", types.CategoryVaultDeposit},
		{"vault withdrawal", "Bob withdrew 12x Iron Bar.", types.CategoryVaultWithdrawal},
		{"member joined", "Alice has joined the clan: Foo", types.CategoryMemberJoined},
		{"vault access", "Bob gave vault access to Alice", types.CategoryVaultAccessGranted},
		{"event started", "Bob has started a gathering event with 5 members", types.CategoryEventStarted},
		{"bulletin", "Alice updated the bulletin board", types.CategoryBulletinUpdate},
		{"unknown", "xyz", types.CategoryUnknown},
		{"empty", "", types.CategoryUnknown},
		{"case sensitive", "Alice HAS JOINED THE CLAN: Foo", types.CategoryUnknown},
		{"deposit without trailing period", "Bob added 500x Gold", types.CategoryUnknown},
		{"deposit without count", "Bob added Gold.", types.CategoryUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.text))
		})
	}
}

func TestClassifyFirstRuleWins(t *testing.T) {
	// Matches both the combat quest and the deposit rules
	text := "Alice completed a combat quest and added 5x Gold."
	assert.Equal(t, types.CategoryCombatQuestCompleted, Classify(text))

	// Matches the deposit rule and the bulletin rule
	text = "Bob updated the bulletin board then added 1x Bone."
	assert.Equal(t, types.CategoryVaultDeposit, Classify(text))
}

func TestClassifyDeterministic(t *testing.T) {
	texts := []string{
		"Bob added 500x Gold.",
		"Alice has joined the clan: Foo",
		"xyz",
		"Bob has started a combat event with 3 members",
	}

	first := make([]types.Category, len(texts))
	for i, text := range texts {
		first[i] = Classify(text)
	}

	// Reverse order and repeat; results must not depend on history
	for round := 0; round < 3; round++ {
		for i := len(texts) - 1; i >= 0; i-- {
			assert.Equal(t, first[i], Classify(texts[i]))
		}
	}
}

func TestCustomRules(t *testing.T) {
	c := New([]Rule{
		{Matcher: Contains("boss"), Category: types.CategoryEventStarted},
	})

	assert.Equal(t, types.CategoryEventStarted, c.Classify("boss fight"))
	assert.Equal(t, types.CategoryUnknown, c.Classify("Bob added 500x Gold."))
	assert.Len(t, c.Rules(), 1)
}

func TestDefaultRulesOrder(t *testing.T) {
	rules := Default().Rules()
	assert.Len(t, rules, 8)
	assert.Equal(t, types.CategoryCombatQuestCompleted, rules[0].Category)
	assert.Equal(t, types.CategoryBulletinUpdate, rules[7].Category)
	assert.Equal(t, "contains completed a combat quest", rules[0].Matcher.String())
}
