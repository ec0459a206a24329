package exclusion

import (
	"regexp"
	"strings"

	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// Rules is the declarative form of an exclusion file
type Rules struct {
	Senders         []string
	Domains         []string
	SubjectPatterns []string
}

// Filter decides whether a message is exempt from classification
type Filter struct {
	senders  map[string]struct{}
	domains  map[string]struct{}
	patterns []*regexp.Regexp
	logger   *zap.Logger
}

// NewFilter creates a filter from rules. Malformed patterns are skipped.
func NewFilter(rules Rules, logger *zap.Logger) *Filter {
	f := &Filter{
		senders: make(map[string]struct{}, len(rules.Senders)),
		domains: make(map[string]struct{}, len(rules.Domains)),
		logger:  logger,
	}

	for _, s := range rules.Senders {
		if s = strings.ToLower(strings.TrimSpace(s)); s != "" {
			f.senders[s] = struct{}{}
		}
	}
	for _, d := range rules.Domains {
		d = strings.TrimPrefix(strings.ToLower(strings.TrimSpace(d)), "@")
		if d != "" {
			f.domains[d] = struct{}{}
		}
	}
	for _, p := range rules.SubjectPatterns {
		re, err := regexp.Compile("(?i)" + p)
		if err != nil {
			logger.Warn("Skipping malformed subject pattern",
				zap.String("pattern", p),
				zap.Error(err))
			continue
		}
		f.patterns = append(f.patterns, re)
	}

	if len(f.senders)+len(f.domains)+len(f.patterns) > 0 {
		logger.Info("Initialized exclusion filter",
			zap.Int("senders", len(f.senders)),
			zap.Int("domains", len(f.domains)),
			zap.Int("subject_patterns", len(f.patterns)))
	}

	return f
}

// Empty returns a filter that excludes nothing
func Empty(logger *zap.Logger) *Filter {
	return NewFilter(Rules{}, logger)
}

// Load reads rules from a YAML or JSON file. Any failure yields a filter
// that excludes nothing so classification keeps running.
func Load(path string, logger *zap.Logger) *Filter {
	if path == "" {
		return Empty(logger)
	}

	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		logger.Warn("Failed to load exclusion rules, excluding nothing",
			zap.String("path", path),
			zap.Error(err))
		return Empty(logger)
	}

	return NewFilter(Rules{
		Senders:         v.GetStringSlice("senders"),
		Domains:         v.GetStringSlice("domains"),
		SubjectPatterns: v.GetStringSlice("subject_patterns"),
	}, logger)
}

// ShouldExclude reports whether the sender or subject matches a rule
func (f *Filter) ShouldExclude(senderAddress, subject string) bool {
	sender := strings.ToLower(strings.TrimSpace(senderAddress))

	if _, ok := f.senders[sender]; ok {
		f.logger.Debug("Sender is excluded", zap.String("sender", sender))
		return true
	}

	if at := strings.LastIndex(sender, "@"); at >= 0 {
		domain := sender[at+1:]
		if _, ok := f.domains[domain]; ok {
			f.logger.Debug("Sender domain is excluded",
				zap.String("domain", domain),
				zap.String("sender", sender))
			return true
		}
	}

	for _, re := range f.patterns {
		if re.MatchString(subject) {
			f.logger.Debug("Subject is excluded",
				zap.String("pattern", re.String()),
				zap.String("subject", subject))
			return true
		}
	}

	return false
}
