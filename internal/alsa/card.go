package alsa

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// procCards lists the registered sound cards.
var procCards = "/proc/asound/cards"

// Card is a sound card registered with ALSA.
type Card struct {
	Index       int
	ID          string
	Description string
}

// String returns the card in the same shape as /proc/asound/cards.
func (c Card) String() string {
	return fmt.Sprintf("%d [%s]: %s", c.Index, c.ID, c.Description)
}

// " 0 [Loopback       ]: Loopback - Loopback"
var cardLine = regexp.MustCompile(`^\s*(\d+)\s+\[\s*([^]]*?)\s*\]:\s*(.*)`)

// Cards returns the sound cards known to the kernel, ordered by index.
func Cards() ([]Card, error) {
	f, err := os.Open(procCards)
	if err != nil {
		return nil, fmt.Errorf("alsa: %w", err)
	}
	defer f.Close()

	return parseCards(f)
}

func parseCards(r io.Reader) ([]Card, error) {
	var cards []Card

	sc := bufio.NewScanner(r)
	for sc.Scan() {
		m := cardLine.FindStringSubmatch(sc.Text())
		if len(m) != 4 {
			continue
		}

		idx, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}

		cards = append(cards, Card{
			Index:       idx,
			ID:          strings.TrimSpace(m[2]),
			Description: strings.TrimSpace(m[3]),
		})
	}

	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("alsa: read cards: %w", err)
	}

	sort.Slice(cards, func(i, j int) bool { return cards[i].Index < cards[j].Index })

	return cards, nil
}

// LookupCard returns the index of the card whose ID matches id, as used in "hw:CARD=<id>".
func LookupCard(id string) (int, error) {
	cards, err := Cards()
	if err != nil {
		return 0, err
	}

	return findCard(cards, id)
}

func findCard(cards []Card, id string) (int, error) {
	for _, c := range cards {
		if c.ID == id {
			return c.Index, nil
		}
	}

	return 0, fmt.Errorf("alsa: no sound card with id %q", id)
}
