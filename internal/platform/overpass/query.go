package overpass

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/paulmach/orb"
	"github.com/simongrossi/maptoposter-web/internal/domain"
)

// bbox renders b in Overpass order: south,west,north,east.
func bbox(b orb.Bound) string {
	return fmt.Sprintf("%.7f,%.7f,%.7f,%.7f", b.Min.Lat(), b.Min.Lon(), b.Max.Lat(), b.Max.Lon())
}

func header(timeout time.Duration) string {
	secs := int(timeout / time.Second)
	if secs <= 0 {
		secs = 180
	}
	return fmt.Sprintf("[out:xml][timeout:%d];\n", secs)
}

// ExcludedHighways are highway classes that are not part of the street
// network: planned, disused or non-road ways.
var ExcludedHighways = []string{
	"abandoned", "construction", "no", "planned", "platform", "proposed", "raceway", "razed",
}

// StreetsQuery selects the highway ways inside b that belong to the
// street network, with the nodes they reference. Area highways and the
// ExcludedHighways classes are left out. Ways crossing the edge are
// returned whole.
func StreetsQuery(b orb.Bound, timeout time.Duration) string {
	var sb strings.Builder
	sb.WriteString(header(timeout))
	fmt.Fprintf(&sb, "(way[\"highway\"][\"area\"!~\"yes\"][\"highway\"!~%s](%s););\n",
		quote("^("+strings.Join(ExcludedHighways, "|")+")$"), bbox(b))
	sb.WriteString("(._;>;);\nout body;\n")
	return sb.String()
}

// FeaturesQuery selects nodes, ways and relations matching any entry of
// tags inside b. Each key contributes one statement to the union.
func FeaturesQuery(b orb.Bound, tags domain.Tags, timeout time.Duration) (string, error) {
	var stmts []string
	for _, key := range tags.Keys() {
		filter, ok := Filter(key, tags[key])
		if !ok {
			continue
		}
		stmts = append(stmts, fmt.Sprintf("nwr%s(%s);", filter, bbox(b)))
	}
	if len(stmts) == 0 {
		return "", fmt.Errorf("%w: no usable tag filter", domain.ErrValidation)
	}

	var sb strings.Builder
	sb.WriteString(header(timeout))
	sb.WriteString("(\n")
	for _, s := range stmts {
		sb.WriteString("  ")
		sb.WriteString(s)
		sb.WriteString("\n")
	}
	sb.WriteString(");\n(._;>;);\nout body;\n")
	return sb.String(), nil
}

// Filter renders a single tag filter: ["k"] for any value, ["k"="v"] for
// one value and ["k"~"^(a|b)$"] for a list. It returns false for a filter
// that matches nothing.
func Filter(key string, v domain.TagValue) (string, bool) {
	switch {
	case v.Any:
		return fmt.Sprintf("[%s]", quote(key)), true
	case len(v.Values) == 1:
		return fmt.Sprintf("[%s=%s]", quote(key), quote(v.Values[0])), true
	case len(v.Values) > 1:
		alts := make([]string, len(v.Values))
		for i, val := range v.Values {
			alts[i] = regexp.QuoteMeta(val)
		}
		return fmt.Sprintf("[%s~%s]", quote(key), quote("^("+strings.Join(alts, "|")+")$")), true
	default:
		return "", false
	}
}

var quoter = strings.NewReplacer(`\`, `\\`, `"`, `\"`, "\n", `\n`)

func quote(s string) string {
	return `"` + quoter.Replace(s) + `"`
}
