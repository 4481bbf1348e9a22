package services

import (
	"errors"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/benson/survivor/models"
)

var ErrNoRosterTable = errors.New("no contestant table found on page")

// Canonical bonus event keys the wiki heuristics classify into. Seasons
// that want an event scored configure the same key in their scoring map.
const (
	EventIndividualImmunity = "individualImmunity"
	EventReward             = "rewardChallenge"
	EventIdolFound          = "idolFound"
	EventIdolPlayed         = "idolPlayed"
	EventFireMaking         = "fireMaking"
	EventAdvantage          = "advantage"
)

var (
	footnotePattern = regexp.MustCompile(`\[[^\]]*\]`)
	agePattern      = regexp.MustCompile(`\s*\(\d+\)\s*`)
	ordinalPattern  = regexp.MustCompile(`^(\d+)(?:st|nd|rd|th)\b`)
	bootPattern     = regexp.MustCompile(`^(\d+)(?:st|nd|rd|th)\s+(?:voted out|eliminated|boot)`)
	runnerUpPattern = regexp.MustCompile(`^(?:(\d+)(?:st|nd|rd|th)\s+)?(?:co-)?runners?-?\s?up`)
)

// ParseRoster extracts a season's contestants from a wiki page. Fan wikis
// format the cast table a few different ways, so this works off header
// keywords: it wants a column naming the contestant and, when the season
// has progressed, a finish column it can turn into placements.
func ParseRoster(doc *goquery.Document) ([]models.Contestant, error) {
	var contestants []models.Contestant

	doc.Find("table").EachWithBreak(func(_ int, table *goquery.Selection) bool {
		parsed := parseRosterTable(table)
		if len(parsed) >= 2 {
			contestants = parsed
			return false
		}
		return true
	})

	if len(contestants) == 0 {
		return nil, ErrNoRosterTable
	}
	return contestants, nil
}

// parseRosterTable reads one candidate table, returning nil when its
// headers do not look like a cast table.
func parseRosterTable(table *goquery.Selection) []models.Contestant {
	nameCol, tribeCol, finishCol := -1, -1, -1

	headers := table.Find("tr").First().Find("th")
	headers.Each(func(i int, th *goquery.Selection) {
		text := strings.ToLower(cleanCellText(th.Text()))
		switch {
		case nameCol == -1 && containsAny(text, "castaway", "contestant", "player", "name"):
			nameCol = i
		case tribeCol == -1 && strings.Contains(text, "tribe"):
			tribeCol = i
		case finishCol == -1 && containsAny(text, "finish", "placement", "place", "result"):
			finishCol = i
		}
	})
	if nameCol == -1 {
		return nil
	}

	type parsedRow struct {
		contestant models.Contestant
		bootOrder  int
	}
	var rows []parsedRow

	table.Find("tr").Each(func(i int, tr *goquery.Selection) {
		if i == 0 {
			return
		}
		cells := tr.Find("th, td")
		if cells.Length() <= nameCol {
			return
		}

		name := cleanContestantName(cells.Eq(nameCol).Text())
		if name == "" {
			return
		}

		row := parsedRow{contestant: models.Contestant{Name: name}}
		if tribeCol != -1 && cells.Length() > tribeCol {
			row.contestant.Tribe = cleanCellText(cells.Eq(tribeCol).Text())
		}
		if finishCol != -1 && cells.Length() > finishCol {
			finish := cleanCellText(cells.Eq(finishCol).Text())
			row.contestant.Placement, row.bootOrder = parsePlacement(finish)
		}
		rows = append(rows, row)
	})

	// "3rd voted out" style finishes count from the other end of the
	// scale; the table has to be fully read before they can be placed.
	contestants := make([]models.Contestant, 0, len(rows))
	for _, row := range rows {
		if row.contestant.Placement == nil && row.bootOrder > 0 {
			placement := len(rows) + 1 - row.bootOrder
			row.contestant.Placement = &placement
		}
		contestants = append(contestants, row.contestant)
	}
	return contestants
}

// parsePlacement turns a finish cell into a placement, or a boot order
// for "Nth voted out" finishes that need the roster size to resolve.
// Unrecognized text means the contestant is still in the game.
func parsePlacement(finish string) (*int, int) {
	text := strings.ToLower(strings.TrimSpace(finish))
	if text == "" {
		return nil, 0
	}

	if strings.Contains(text, "sole survivor") || strings.HasPrefix(text, "winner") {
		placement := 1
		return &placement, 0
	}

	if m := runnerUpPattern.FindStringSubmatch(text); m != nil {
		placement := 2
		if m[1] != "" {
			// An "Nth runner-up" finished N places behind the winner.
			n, _ := strconv.Atoi(m[1])
			placement = n + 1
		}
		return &placement, 0
	}

	if m := bootPattern.FindStringSubmatch(text); m != nil {
		order, _ := strconv.Atoi(m[1])
		return nil, order
	}

	if m := ordinalPattern.FindStringSubmatch(text); m != nil {
		placement, _ := strconv.Atoi(m[1])
		return &placement, 0
	}

	return nil, 0
}

// WikiEvent is one scorable occurrence read off an episode table: a raw
// name (not yet reconciled to the roster) and the canonical event key.
type WikiEvent struct {
	Name string
	Key  string
}

// ClassifyEvent maps free wiki text to a canonical scoring key, or ""
// when the text names nothing scorable per contestant. Tribal challenges
// go to a tribe, not a person, so they classify as nothing.
func ClassifyEvent(text string) string {
	text = strings.ToLower(text)
	switch {
	case strings.Contains(text, "tribal"):
		return ""
	case strings.Contains(text, "fire"):
		return EventFireMaking
	case strings.Contains(text, "idol") && strings.Contains(text, "play"):
		return EventIdolPlayed
	case strings.Contains(text, "idol"):
		return EventIdolFound
	case strings.Contains(text, "immunity"):
		return EventIndividualImmunity
	case strings.Contains(text, "reward"):
		return EventReward
	case strings.Contains(text, "advantage"):
		return EventAdvantage
	default:
		return ""
	}
}

// ParseEvents extracts scorable events from a page's episode tables:
// any table with a column whose header classifies to an event key, with
// winner names in the cells below. Rows that classify to nothing are
// skipped, never fatal.
func ParseEvents(doc *goquery.Document) []WikiEvent {
	var events []WikiEvent
	doc.Find("table").Each(func(_ int, table *goquery.Selection) {
		events = append(events, parseEventTable(table)...)
	})
	return events
}

func parseEventTable(table *goquery.Selection) []WikiEvent {
	eventCols := make(map[int]string)
	table.Find("tr").First().Find("th").Each(func(i int, th *goquery.Selection) {
		if key := ClassifyEvent(cleanCellText(th.Text())); key != "" {
			eventCols[i] = key
		}
	})
	if len(eventCols) == 0 {
		return nil
	}

	var events []WikiEvent
	table.Find("tr").Each(func(i int, tr *goquery.Selection) {
		if i == 0 {
			return
		}
		cells := tr.Find("th, td")
		for col, key := range eventCols {
			if cells.Length() <= col {
				continue
			}
			for _, name := range splitWinnerNames(cells.Eq(col).Text()) {
				events = append(events, WikiEvent{Name: name, Key: key})
			}
		}
	})
	return events
}

// splitWinnerNames breaks an episode cell into individual names. Wikis
// list shared wins with commas or line breaks, and mark no-winner rows
// with dashes or "None".
func splitWinnerNames(raw string) []string {
	text := footnotePattern.ReplaceAllString(raw, "")
	text = strings.NewReplacer("\n", ",", ";", ",").Replace(text)

	var names []string
	for _, part := range strings.Split(text, ",") {
		name := strings.Join(strings.Fields(part), " ")
		switch strings.ToLower(name) {
		case "", "none", "n/a", "-", "—", "–":
			continue
		}
		names = append(names, name)
	}
	return names
}

// cleanContestantName strips the extras wiki cast cells pack around the
// name: footnote markers, an age in parens, and hometown lines below.
func cleanContestantName(raw string) string {
	name := cleanCellText(raw)
	if idx := strings.IndexAny(name, ",;"); idx != -1 {
		name = name[:idx]
	}
	return strings.TrimSpace(name)
}

// cleanCellText keeps a cell's first line and strips footnote markers
// and parenthesized ages. The line cut comes first: the age pattern eats
// surrounding whitespace and would otherwise splice two lines together.
func cleanCellText(raw string) string {
	text := raw
	if idx := strings.IndexByte(text, '\n'); idx != -1 {
		text = text[:idx]
	}
	text = footnotePattern.ReplaceAllString(text, "")
	text = agePattern.ReplaceAllString(text, " ")
	return strings.Join(strings.Fields(text), " ")
}

func containsAny(text string, keywords ...string) bool {
	for _, keyword := range keywords {
		if strings.Contains(text, keyword) {
			return true
		}
	}
	return false
}
