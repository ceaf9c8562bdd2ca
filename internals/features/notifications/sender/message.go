package sender

import (
	"fmt"
	"html"
	"strings"

	"scoda_backend/internals/features/notifications/batcher"
	"scoda_backend/internals/helpers/dbtime"
)

const timeLayout = "15:04"

type Message struct {
	Subject string
	Text    string
	HTML    string
}

func pickupDay(ev batcher.PickupEvent) string {
	if !ev.Day.IsZero() {
		return ev.Day.UTC().Format(dbtime.DayLayout)
	}
	return ev.RegisteredAt.Format(dbtime.DayLayout)
}

// pickupLine names the registering staff member as the pickup person when
// nobody else was recorded.
func pickupLine(ev batcher.PickupEvent) string {
	var b strings.Builder
	b.WriteString(ev.StudentName)
	if ev.CourseName != "" {
		fmt.Fprintf(&b, " (%s)", ev.CourseName)
	}
	fmt.Fprintf(&b, " was picked up on %s at %s", pickupDay(ev), ev.RegisteredAt.Format(timeLayout))
	switch {
	case ev.PickedUpByName != "":
		fmt.Fprintf(&b, " by %s", ev.PickedUpByName)
		if ev.RegisteredByName != "" {
			fmt.Fprintf(&b, " (registered by %s)", ev.RegisteredByName)
		}
	case ev.RegisteredByName != "":
		fmt.Fprintf(&b, " by %s", ev.RegisteredByName)
	}
	if ev.EarlyDismissal {
		b.WriteString(", before the end of the school day")
	}
	return b.String()
}

// IndividualMessage is the notice for a single pickup.
func IndividualMessage(to batcher.Recipient, ev batcher.PickupEvent) Message {
	line := pickupLine(ev)
	text := fmt.Sprintf("Hello %s,\n\n%s.\n", to.Name, line)
	if ev.Observation != "" {
		text += fmt.Sprintf("Note: %s\n", ev.Observation)
	}

	var h strings.Builder
	fmt.Fprintf(&h, "<p>Hello %s,</p><p>%s.</p>", html.EscapeString(to.Name), html.EscapeString(line))
	if ev.Observation != "" {
		fmt.Fprintf(&h, "<p><em>Note: %s</em></p>", html.EscapeString(ev.Observation))
	}

	return Message{
		Subject: fmt.Sprintf("Pickup: %s", ev.StudentName),
		Text:    text,
		HTML:    h.String(),
	}
}

// DigestMessage lists every pickup in one notice.
func DigestMessage(to batcher.Recipient, events []batcher.PickupEvent) Message {
	var t, h strings.Builder
	fmt.Fprintf(&t, "Hello %s,\n\nThe following pickups were registered:\n", to.Name)
	fmt.Fprintf(&h, "<p>Hello %s,</p><p>The following pickups were registered:</p><ul>", html.EscapeString(to.Name))
	for _, ev := range events {
		line := pickupLine(ev)
		fmt.Fprintf(&t, "  - %s\n", line)
		fmt.Fprintf(&h, "<li>%s</li>", html.EscapeString(line))
	}
	h.WriteString("</ul>")

	return Message{
		Subject: fmt.Sprintf("Pickup summary: %d students", len(events)),
		Text:    t.String(),
		HTML:    h.String(),
	}
}
