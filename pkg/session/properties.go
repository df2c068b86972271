package session

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
)

// DistributionMode is the join distribution override for a session.
// AUTOMATIC lets the cost model choose per join; BROADCAST forces
// replicated joins without the size limit; PARTITIONED forbids
// replication entirely.
type DistributionMode string

const (
	DistributionAutomatic   DistributionMode = "AUTOMATIC"
	DistributionBroadcast   DistributionMode = "BROADCAST"
	DistributionPartitioned DistributionMode = "PARTITIONED"
)

// ParseDistributionMode parses a case-insensitive mode name.
func ParseDistributionMode(s string) (DistributionMode, error) {
	switch DistributionMode(strings.ToUpper(strings.TrimSpace(s))) {
	case DistributionAutomatic:
		return DistributionAutomatic, nil
	case DistributionBroadcast:
		return DistributionBroadcast, nil
	case DistributionPartitioned:
		return DistributionPartitioned, nil
	}
	return "", fmt.Errorf("invalid join distribution type: %q (want AUTOMATIC, BROADCAST or PARTITIONED)", s)
}

// ReorderStrategy controls whether join order search runs at all.
// NONE keeps the syntactic order and only picks distribution per step.
type ReorderStrategy string

const (
	ReorderAutomatic ReorderStrategy = "AUTOMATIC"
	ReorderNone      ReorderStrategy = "NONE"
)

// ParseReorderStrategy parses a case-insensitive strategy name.
func ParseReorderStrategy(s string) (ReorderStrategy, error) {
	switch ReorderStrategy(strings.ToUpper(strings.TrimSpace(s))) {
	case ReorderAutomatic:
		return ReorderAutomatic, nil
	case ReorderNone:
		return ReorderNone, nil
	}
	return "", fmt.Errorf("invalid join reordering strategy: %q (want AUTOMATIC or NONE)", s)
}

// Session property names.
const (
	PropJoinDistributionType      = "join_distribution_type"
	PropJoinReorderingStrategy    = "join_reordering_strategy"
	PropJoinMaxBroadcastTableSize = "join_max_broadcast_table_size"
	PropJoinReorderingLimit       = "join_reordering_limit"
	PropTaskCount                 = "task_count"
	PropDebug                     = "debug"
)

// MaxJoinReorderingLimit caps join_reordering_limit. The join order
// search enumerates up to 2^limit relation subsets.
const MaxJoinReorderingLimit = 16

// PropertyDef describes one settable session property.
type PropertyDef struct {
	Name        string
	Default     string
	Description string
	// normalize validates a raw value and returns its canonical form.
	normalize func(string) (string, error)
}

var propertyDefs = map[string]*PropertyDef{
	PropJoinDistributionType: {
		Name:        PropJoinDistributionType,
		Default:     string(DistributionAutomatic),
		Description: "How join inputs are distributed: AUTOMATIC, BROADCAST or PARTITIONED",
		normalize: func(v string) (string, error) {
			mode, err := ParseDistributionMode(v)
			return string(mode), err
		},
	},
	PropJoinReorderingStrategy: {
		Name:        PropJoinReorderingStrategy,
		Default:     string(ReorderAutomatic),
		Description: "Join order search: AUTOMATIC (cost-based) or NONE (syntactic order)",
		normalize: func(v string) (string, error) {
			strategy, err := ParseReorderStrategy(v)
			return string(strategy), err
		},
	},
	PropJoinMaxBroadcastTableSize: {
		Name:        PropJoinMaxBroadcastTableSize,
		Default:     "100MB",
		Description: "Largest build side eligible for broadcast under AUTOMATIC distribution",
		normalize: func(v string) (string, error) {
			if _, err := humanize.ParseBytes(v); err != nil {
				return "", fmt.Errorf("invalid data size %q: %w", v, err)
			}
			return v, nil
		},
	},
	PropJoinReorderingLimit: {
		Name:        PropJoinReorderingLimit,
		Default:     "9",
		Description: "Largest relation count searched exhaustively when reordering joins",
		// the subset search is exponential in this limit
		normalize: normalizeBoundedInt(1, MaxJoinReorderingLimit),
	},
	PropTaskCount: {
		Name:        PropTaskCount,
		Default:     "4",
		Description: "Assumed worker task count for exchange cost estimates",
		normalize:   normalizePositiveInt,
	},
	PropDebug: {
		Name:        PropDebug,
		Default:     "false",
		Description: "Verbose optimizer tracing",
		normalize: func(v string) (string, error) {
			b, err := strconv.ParseBool(strings.ToLower(strings.TrimSpace(v)))
			if err != nil {
				return "", fmt.Errorf("invalid boolean %q", v)
			}
			return strconv.FormatBool(b), nil
		},
	},
}

func normalizePositiveInt(v string) (string, error) {
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil || n < 1 {
		return "", fmt.Errorf("invalid positive integer %q", v)
	}
	return strconv.Itoa(n), nil
}

func normalizeBoundedInt(min, max int) func(string) (string, error) {
	return func(v string) (string, error) {
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil || n < min || n > max {
			return "", fmt.Errorf("invalid integer %q (want %d to %d)", v, min, max)
		}
		return strconv.Itoa(n), nil
	}
}

// LookupProperty returns the definition of a property name.
func LookupProperty(name string) (*PropertyDef, bool) {
	def, ok := propertyDefs[strings.ToLower(strings.TrimSpace(name))]
	return def, ok
}

// PropertyNames returns all property names sorted.
func PropertyNames() []string {
	names := make([]string, 0, len(propertyDefs))
	for name := range propertyDefs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
