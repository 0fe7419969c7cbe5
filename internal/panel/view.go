// internal/panel/view.go
package panel

import (
	"fmt"
	"strconv"

	"github.com/lramos15/kronos-discord/internal/kronos"
)

// View is one rendered state of the control panel. The transport decides how
// to draw it; the panel only decides what it contains.
type View struct {
	Title       string
	Description string
	Fields      []Field
	Buttons     []Button
	Selector    []SelectorOption
	// Notice carries a generic error line when an event could not be applied.
	Notice string
	// Processing marks the bare placeholder shown while an event is handled.
	Processing bool
}

// Field is one labelled value on the panel.
type Field struct {
	Name   string
	Value  string
	Inline bool
}

// Button is one lifecycle control.
type Button struct {
	Operation kronos.Operation
	Label     string
	Disabled  bool
}

// SelectorOption is one entry of the service picker row.
type SelectorOption struct {
	Label       string
	Description string
	Value       string
}

const unknownValue = "Unknown"

// buildView assembles the panel for the currently selected service.
func (s *Session) buildView(svc Service, status string, info streamCounts) View {
	fields := []Field{
		{Name: "Service Status", Value: prettifyStatus(status), Inline: true},
		{Name: "Product", Value: svc.Product(), Inline: true},
		{Name: "GPU Transcoding", Value: gpuMark(svc.SupportsGPUTranscoding()), Inline: true},
		{Name: "Node", Value: svc.NodeAlias(), Inline: true},
		{Name: "Folder Name", Value: svc.ContainerFolderName(), Inline: true},
		{Name: "Service ID", Value: strconv.Itoa(svc.ID()), Inline: true},
		{Name: "Plex URL", Value: orUnknown(svc.PlexURL()), Inline: false},
		{Name: "Active Streams", Value: countValue(info.streams, "stream(s)"), Inline: true},
		{Name: "Active Transcodes", Value: countValue(info.transcodes, "transcode(s)"), Inline: true},
	}

	buttons := []Button{
		{Operation: kronos.OperationStart, Label: "Start", Disabled: status != "stopped"},
		{Operation: kronos.OperationStop, Label: "Stop", Disabled: status == "stopped"},
		{Operation: kronos.OperationRestart, Label: "Restart", Disabled: status == "stopped"},
	}

	var selector []SelectorOption
	if len(s.services) > 1 {
		selector = make([]SelectorOption, 0, len(s.services))
		for _, entry := range s.services {
			selector = append(selector, SelectorOption{
				Label:       entry.Alias(),
				Description: entry.Description(),
				Value:       strconv.Itoa(entry.ID()),
			})
		}
	}

	return View{
		Title:       svc.Alias(),
		Description: svc.Description(),
		Fields:      fields,
		Buttons:     buttons,
		Selector:    selector,
	}
}

func processingView() View {
	return View{Title: "Processing...", Processing: true}
}

// prettifyStatus dresses the raw status up for display.
func prettifyStatus(status string) string {
	switch status {
	case "running":
		return "🟢 Running"
	case "stopped":
		return "🔴 Stopped"
	default:
		return fmt.Sprintf("🟡 %s", status)
	}
}

func gpuMark(supported bool) string {
	if supported {
		return "✅"
	}
	return "❌"
}

func orUnknown(value string) string {
	if value == "" {
		return unknownValue
	}
	return value
}

func countValue(count *int, unit string) string {
	if count == nil {
		return unknownValue
	}
	return fmt.Sprintf("%d %s", *count, unit)
}
