package classify

import (
	_ "embed"
	"os"
	"sort"
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"catalogrecon/internal/catalog"
)

//go:embed rules.yaml
var defaultRules []byte

type Policy string

const (
	PolicyAlways  Policy = "always"
	PolicyIfEmpty Policy = "if_empty"
)

type Rule struct {
	Keyword        string `yaml:"keyword"`
	Category       string `yaml:"category"`
	CategoryPolicy Policy `yaml:"category_policy"`
	BrandPolicy    Policy `yaml:"brand_policy"`
}

type Config struct {
	Rules  []Rule                `yaml:"rules"`
	Brands map[string][][]string `yaml:"brands"`
}

func DefaultConfig() Config {
	cfg, err := ParseConfig(defaultRules)
	if err != nil {
		panic(err)
	}
	return cfg
}

// LoadConfig reads a YAML rule file; an empty path yields the built-in rules.
func LoadConfig(path string) (Config, error) {
	if path == "" {
		return DefaultConfig(), nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, errors.Wrapf(err, "read rules %s", path)
	}
	return ParseConfig(b)
}

func ParseConfig(b []byte) (Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return Config{}, errors.Wrap(err, "parse rules")
	}
	if len(cfg.Rules) == 0 {
		return Config{}, errors.New("rules: at least one keyword rule is required")
	}
	for i, r := range cfg.Rules {
		if strings.TrimSpace(r.Keyword) == "" {
			return Config{}, errors.Errorf("rules[%d]: keyword is required", i)
		}
		for _, p := range []Policy{r.CategoryPolicy, r.BrandPolicy} {
			if p != PolicyAlways && p != PolicyIfEmpty {
				return Config{}, errors.Errorf("rules[%d] %s: unknown policy %q", i, r.Keyword, p)
			}
		}
	}
	return cfg, nil
}

type compiledRule struct {
	Rule
	tokens []string
}

type Classifier struct {
	rules  []compiledRule
	brands map[string][][]string
}

func New(cfg Config) *Classifier {
	c := &Classifier{brands: make(map[string][][]string, len(cfg.Brands))}
	for _, r := range cfg.Rules {
		kw := strings.Fields(strings.ToUpper(r.Keyword))
		if r.Category == "" {
			r.Category = strings.Join(kw, " ")
		}
		c.rules = append(c.rules, compiledRule{Rule: r, tokens: kw})
	}
	sort.SliceStable(c.rules, func(i, j int) bool { return len(c.rules[i].tokens) > len(c.rules[j].tokens) })
	for first, alts := range cfg.Brands {
		up := make([][]string, 0, len(alts))
		for _, alt := range alts {
			seq := make([]string, len(alt))
			for i, tok := range alt {
				seq[i] = strings.ToUpper(tok)
			}
			up = append(up, seq)
		}
		sort.SliceStable(up, func(i, j int) bool { return len(up[i]) > len(up[j]) })
		c.brands[strings.ToUpper(first)] = up
	}
	return c
}

// Derive finds the rule whose keyword opens name and the brand that follows it.
func (c *Classifier) Derive(name string) (Rule, string, bool) {
	tokens := strings.Fields(name)
	for _, r := range c.rules {
		k := len(r.tokens)
		if len(tokens) <= k || !tokensEqual(tokens[:k], r.tokens) {
			continue
		}
		return r.Rule, c.expandBrand(tokens[k:]), true
	}
	return Rule{}, "", false
}

func (c *Classifier) expandBrand(tokens []string) string {
	for _, alt := range c.brands[strings.ToUpper(tokens[0])] {
		if len(tokens) > len(alt) && tokensEqual(tokens[1:1+len(alt)], alt) {
			return strings.Join(tokens[:1+len(alt)], " ")
		}
	}
	return tokens[0]
}

func tokensEqual(got, want []string) bool {
	if len(got) != len(want) {
		return false
	}
	for i := range got {
		if strings.ToUpper(got[i]) != want[i] {
			return false
		}
	}
	return true
}

type Result struct {
	Matched         bool
	Keyword         string
	OldCategory     string
	NewCategory     string
	OldBrand        string
	NewBrand        string
	CategoryChanged bool
	BrandChanged    bool
}

// Apply classifies p in place. Category and brand follow their rule's policies
// independently, so a rule may keep an explicit category while replacing the brand.
func (c *Classifier) Apply(p *catalog.Product) Result {
	rule, brand, ok := c.Derive(p.Name)
	if !ok {
		return Result{}
	}
	res := Result{
		Matched:     true,
		Keyword:     strings.ToUpper(rule.Keyword),
		OldCategory: p.Category,
		NewCategory: p.Category,
		OldBrand:    p.BrandName,
		NewBrand:    p.BrandName,
	}
	if rule.CategoryPolicy == PolicyAlways || catalog.IsEmpty(p.Category) {
		p.Category = rule.Category
		res.NewCategory = rule.Category
	}
	if rule.BrandPolicy == PolicyAlways || catalog.IsEmpty(p.BrandName) {
		p.BrandName = brand
		res.NewBrand = brand
	}
	res.CategoryChanged = res.OldCategory != res.NewCategory
	res.BrandChanged = res.OldBrand != res.NewBrand
	return res
}
