package classifier

import (
	"regexp"
	"strings"

	"github.com/cuemby/clanrelay/pkg/types"
)

// Matcher reports whether a rule applies to a piece of clan-log text
type Matcher interface {
	Match(text string) bool
	String() string
}

// Contains matches when the text contains the substring (case-sensitive)
type Contains string

func (c Contains) Match(text string) bool { return strings.Contains(text, string(c)) }

func (c Contains) String() string { return "contains " + string(c) }

// Pattern matches when the regular expression finds a match anywhere in the text
type Pattern struct {
	re *regexp.Regexp
}

// MustPattern compiles expr into a Pattern, panicking on invalid input
func MustPattern(expr string) Pattern {
	return Pattern{re: regexp.MustCompile(expr)}
}

func (p Pattern) Match(text string) bool { return p.re.MatchString(text) }

func (p Pattern) String() string { return "matches " + p.re.String() }

// Rule pairs a matcher with the category it assigns
type Rule struct {
	Matcher  Matcher
	Category types.Category
}

// Classifier assigns categories by evaluating rules in order; the first match wins
type Classifier struct {
	rules []Rule
}

// New creates a classifier from an ordered rule list
func New(rules []Rule) *Classifier {
	return &Classifier{rules: append([]Rule(nil), rules...)}
}

// DefaultRules is the clan-log rule table
func DefaultRules() []Rule {
	return []Rule{
		{Matcher: Contains("completed a combat quest"), Category: types.CategoryCombatQuestCompleted},
		{Matcher: Contains("completed a skilling quest"), Category: types.CategorySkillingQuestCompleted},
		{Matcher: MustPattern(`added \d+x .+\.$`), Category: types.CategoryVaultDeposit},
		{Matcher: MustPattern(`withdrew \d+x .+\.$`), Category: types.CategoryVaultWithdrawal},
		{Matcher: Contains("has joined the clan:"), Category: types.CategoryMemberJoined},
		{Matcher: Contains("gave vault access to"), Category: types.CategoryVaultAccessGranted},
		{Matcher: MustPattern(`has started a .+ event with`), Category: types.CategoryEventStarted},
		{Matcher: Contains("updated the bulletin board"), Category: types.CategoryBulletinUpdate},
	}
}

var defaultClassifier = New(DefaultRules())

// Default returns the classifier built from DefaultRules
func Default() *Classifier {
	return defaultClassifier
}

// Classify returns the category of text using the default rule table
func Classify(text string) types.Category {
	return defaultClassifier.Classify(text)
}

// Classify returns the category of the first matching rule, or unknown
func (c *Classifier) Classify(text string) types.Category {
	for _, rule := range c.rules {
		if rule.Matcher.Match(text) {
			return rule.Category
		}
	}
	return types.CategoryUnknown
}

// Rules returns a copy of the ordered rule table
func (c *Classifier) Rules() []Rule {
	return append([]Rule(nil), c.rules...)
}
