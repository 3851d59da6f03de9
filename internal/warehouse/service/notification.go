package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/ksp/warehouse/internal/warehouse/domain"
	"github.com/ksp/warehouse/internal/warehouse/events"
	"github.com/ksp/warehouse/internal/warehouse/mailer"
	"github.com/ksp/warehouse/internal/warehouse/repository"
	"github.com/ksp/warehouse/pkg/logger"
	"github.com/ksp/warehouse/pkg/messaging"
)

// ExpirySubject is the subject of the expiry notification mail.
const ExpirySubject = "Przedmioty z bliskim terminem ważności"

// ExpiringSource lists active units expiring in a date range.
type ExpiringSource interface {
	ExpiringBetween(ctx context.Context, from, to domain.Date) ([]*repository.ExpiringItem, error)
}

// ExpiryNotifierConfig configures the notifier.
type ExpiryNotifierConfig struct {
	Recipients []string
	From       string
	WindowDays int
	Location   *time.Location
	Clock      func() time.Time
}

// ExpiryNotifier mails the list of units expiring soon.
type ExpiryNotifier struct {
	source    ExpiringSource
	mailer    mailer.Mailer
	publisher *events.WarehousePublisher
	cfg       ExpiryNotifierConfig
	logger    *logger.Logger
}

// NewExpiryNotifier creates a new expiry notifier. publisher may be nil.
func NewExpiryNotifier(source ExpiringSource, m mailer.Mailer, publisher *events.WarehousePublisher, cfg ExpiryNotifierConfig, log *logger.Logger) *ExpiryNotifier {
	if cfg.WindowDays < 0 {
		cfg.WindowDays = 0
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	return &ExpiryNotifier{
		source:    source,
		mailer:    m,
		publisher: publisher,
		cfg:       cfg,
		logger:    log.WithComponent("expiry_notifier"),
	}
}

// ExpiryReport is the outcome of one run. Sent is false when nothing was
// expiring.
type ExpiryReport struct {
	Sent       bool
	Units      int
	Groups     []messaging.ExpiryGroup
	Recipients []string
	Body       string
}

// Run selects the units expiring within the window, mails the grouped
// list and publishes the summary. No expiring units means no mail.
func (n *ExpiryNotifier) Run(ctx context.Context) (*ExpiryReport, error) {
	today := domain.DateOf(n.cfg.Clock().In(n.cfg.Location))
	items, err := n.source.ExpiringBetween(ctx, today, today.AddDays(n.cfg.WindowDays))
	if err != nil {
		return nil, fmt.Errorf("load expiring items: %w", err)
	}

	report := &ExpiryReport{Units: len(items)}
	if len(items) == 0 {
		n.logger.Info().Msg("no items expiring within the window")
		return report, nil
	}

	report.Groups = GroupExpiring(items)
	report.Body = RenderExpiryBody(report.Groups)
	report.Recipients = recipients(n.cfg.Recipients, n.cfg.From)

	err = n.mailer.Send(ctx, mailer.Message{
		To:      report.Recipients,
		Subject: ExpirySubject,
		Body:    report.Body,
	})
	if err != nil {
		return nil, fmt.Errorf("send expiry notification: %w", err)
	}
	report.Sent = true

	n.logger.Info().
		Int("units", report.Units).
		Int("groups", len(report.Groups)).
		Strs("recipients", report.Recipients).
		Msg("expiry notification sent")

	n.publisher.ExpiryReport(ctx, messaging.ExpiryReportEvent{
		WindowDays: n.cfg.WindowDays,
		Units:      report.Units,
		Groups:     report.Groups,
	})
	return report, nil
}

// GroupExpiring folds units by name, expiration date, location and
// manufacturer, counting units and collecting distinct notes. Groups keep
// the order of their first unit.
func GroupExpiring(items []*repository.ExpiringItem) []messaging.ExpiryGroup {
	index := make(map[string]int)
	var groups []messaging.ExpiryGroup
	for _, it := range items {
		key := strings.Join([]string{it.Name, it.ExpirationDate.String(), it.FullLocation, deref(it.Manufacturer)}, "\x00")
		i, ok := index[key]
		if !ok {
			i = len(groups)
			index[key] = i
			groups = append(groups, messaging.ExpiryGroup{
				Name:           it.Name,
				ExpirationDate: it.ExpirationDate.String(),
				Manufacturer:   it.Manufacturer,
				Locations:      []string{it.FullLocation},
			})
		}
		g := &groups[i]
		g.Count++
		if it.Note != nil && *it.Note != "" && !contains(g.Notes, *it.Note) {
			g.Notes = append(g.Notes, *it.Note)
		}
	}
	for i := range groups {
		sort.Strings(groups[i].Locations)
	}
	return groups
}

// RenderExpiryBody renders the Polish plain-text mail body.
func RenderExpiryBody(groups []messaging.ExpiryGroup) string {
	lines := []string{"Te przedmioty mają bliski termin ważności:\n\n"}
	for _, g := range groups {
		var b strings.Builder
		b.WriteString("Przedmiot: " + g.Name)
		if g.Manufacturer != nil && *g.Manufacturer != "" {
			b.WriteString(" (Producent: " + *g.Manufacturer + ")")
		}
		fmt.Fprintf(&b, " - %d szt.", g.Count)
		b.WriteString("\nData ważności: " + g.ExpirationDate)
		if len(g.Locations) > 0 {
			b.WriteString("\nLokalizacja: " + strings.Join(g.Locations, ", "))
		} else {
			b.WriteString("\nNie przypisano do żadnej półki.")
		}
		if len(g.Notes) > 0 {
			b.WriteString("\nNotatki:")
			for i, note := range g.Notes {
				if len(g.Notes) > 1 {
					fmt.Fprintf(&b, "\n  %d. %s", i+1, note)
				} else {
					b.WriteString("\n  " + note)
				}
			}
		}
		lines = append(lines, b.String(), strings.Repeat("-", 40))
	}
	return strings.Join(lines, "\n")
}

// recipients returns the configured recipients plus the sender, without
// duplicates.
func recipients(configured []string, from string) []string {
	out := make([]string, 0, len(configured)+1)
	for _, r := range configured {
		if r = strings.TrimSpace(r); r != "" && !contains(out, r) {
			out = append(out, r)
		}
	}
	if from != "" && !contains(out, from) {
		out = append(out, from)
	}
	return out
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
