package service

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"

	"github.com/ludo-technologies/finscn/domain"
)

var (
	changedStyle  = color.New(color.FgGreen, color.Bold)
	failedStyle   = color.New(color.FgRed, color.Bold)
	warningStyle  = color.New(color.FgYellow)
	mismatchStyle = color.New(color.FgYellow, color.Bold)
	dimStyle      = color.New(color.Faint)
)

// RewriteFormatterImpl implements the RewriteOutputFormatter interface
type RewriteFormatterImpl struct{}

// NewRewriteFormatter creates a new rewrite output formatter
func NewRewriteFormatter() *RewriteFormatterImpl {
	return &RewriteFormatterImpl{}
}

// Format formats the response according to the specified format
func (f *RewriteFormatterImpl) Format(response *domain.RewriteResponse, format domain.OutputFormat) (string, error) {
	switch format {
	case domain.OutputFormatText, "":
		return f.formatText(response), nil
	case domain.OutputFormatJSON:
		return EncodeJSON(response)
	case domain.OutputFormatYAML:
		return EncodeYAML(response)
	default:
		return "", domain.NewUnsupportedFormatError(string(format))
	}
}

// Write writes the formatted output to the writer
func (f *RewriteFormatterImpl) Write(response *domain.RewriteResponse, format domain.OutputFormat, writer io.Writer) error {
	switch format {
	case domain.OutputFormatJSON:
		return WriteJSON(writer, response)
	case domain.OutputFormatYAML:
		return WriteYAML(writer, response)
	}
	formatted, err := f.Format(response, format)
	if err != nil {
		return err
	}
	_, err = io.WriteString(writer, formatted)
	return err
}

func (f *RewriteFormatterImpl) formatText(response *domain.RewriteResponse) string {
	var b strings.Builder
	utils := NewFormatUtils()

	title := "Finally Rewrite Report"
	if response.Mode == domain.RewriteModeInspect {
		title = "Try/Catch/Finally Structure"
	}
	b.WriteString(utils.FormatMainHeader(title))

	sum := response.Summary
	b.WriteString(utils.FormatSectionHeader("Summary"))
	b.WriteString(utils.FormatLabelWithIndent(SectionPadding, "Files processed", sum.FilesProcessed))
	if sum.FilesFailed > 0 {
		b.WriteString(utils.FormatLabelWithIndent(SectionPadding, "Files failed", failedStyle.Sprint(sum.FilesFailed)))
	}
	b.WriteString(utils.FormatLabelWithIndent(SectionPadding, "Methods processed", sum.MethodsProcessed))
	if response.Mode != domain.RewriteModeInspect {
		b.WriteString(utils.FormatLabelWithIndent(SectionPadding, "Methods changed", sum.MethodsChanged))
	}
	if sum.MethodsFailed > 0 {
		b.WriteString(utils.FormatLabelWithIndent(SectionPadding, "Methods failed", failedStyle.Sprint(sum.MethodsFailed)))
	}
	b.WriteString(utils.FormatLabelWithIndent(SectionPadding, "Try statements", sum.TryUnits))
	if response.Mode != domain.RewriteModeInspect {
		b.WriteString(utils.FormatLabelWithIndent(SectionPadding, "Marker calls rewritten",
			fmt.Sprintf("%d (return %d, throw %d)", sum.SitesRewritten, sum.ReturnExitSites, sum.ThrowExitSites)))
		if sum.TypeMismatchSites > 0 {
			b.WriteString(utils.FormatLabelWithIndent(SectionPadding, "Type mismatches", mismatchStyle.Sprint(sum.TypeMismatchSites)))
		}
	}

	var shown []domain.MethodResult
	for _, m := range response.Methods {
		if m.Changed || m.Error != "" || len(m.Tries) > 0 {
			shown = append(shown, m)
		}
	}
	if len(shown) > 0 {
		b.WriteString(utils.FormatSectionHeader("Methods"))
		for _, m := range shown {
			f.writeMethod(&b, utils, m)
		}
	}

	if len(response.Warnings) > 0 {
		b.WriteString(utils.FormatSectionHeader("Warnings"))
		for _, w := range response.Warnings {
			b.WriteString(strings.Repeat(" ", SectionPadding) + warningStyle.Sprint(w) + "\n")
		}
	}
	if len(response.Errors) > 0 {
		b.WriteString(utils.FormatSectionHeader("Errors"))
		for _, e := range response.Errors {
			b.WriteString(strings.Repeat(" ", SectionPadding) + failedStyle.Sprint(e) + "\n")
		}
	}
	return b.String()
}

func (f *RewriteFormatterImpl) writeMethod(b *strings.Builder, utils *FormatUtils, m domain.MethodResult) {
	status := ""
	switch {
	case m.Error != "":
		status = failedStyle.Sprint("failed")
	case m.Changed:
		status = changedStyle.Sprint("changed")
	}
	line := m.Signature()
	if status != "" {
		line += " [" + status + "]"
	}
	fmt.Fprintf(b, "%s%s %s\n", strings.Repeat(" ", SectionPadding), line, dimStyle.Sprint(m.File))

	if m.Error != "" {
		fmt.Fprintf(b, "%s%s\n", strings.Repeat(" ", ItemPadding), m.Error)
		return
	}
	b.WriteString(utils.Indent(DescribeTries(m.Tries), ItemPadding))
	for _, s := range m.Sites {
		call := s.Call
		if s.TypeMismatch {
			call += " " + mismatchStyle.Sprint("(type mismatch)")
		}
		fmt.Fprintf(b, "%s%-6s %s slot %d in [%d,%d) -> %s\n",
			strings.Repeat(" ", ItemPadding), s.Exit, call, s.Slot, s.Region.Start, s.Region.End, s.Replacement)
	}
	if m.Listing != "" {
		b.WriteString(utils.Indent(m.Listing, ItemPadding))
	}
}

// DescribeTries renders a try forest one statement per line, children
// indented below their parent.
func DescribeTries(units []domain.TryUnitInfo) string {
	var b strings.Builder
	var walk func(u domain.TryUnitInfo, depth int)
	walk = func(u domain.TryUnitInfo, depth int) {
		fmt.Fprintf(&b, "%stry %s", strings.Repeat("  ", depth), describeBlockInfos(u.Try.Blocks))
		for _, c := range u.Catches {
			fmt.Fprintf(&b, " catch %s", describeBlockInfos(c.Blocks))
		}
		fmt.Fprintf(&b, " finally %s\n", describeBlockInfos(u.Finally.Blocks))

		scopes := append([]domain.ScopeInfo{u.Try}, u.Catches...)
		scopes = append(scopes, u.Finally)
		for _, s := range scopes {
			for _, n := range s.Nested {
				walk(n, depth+1)
			}
		}
	}
	for _, u := range units {
		walk(u, 0)
	}
	return b.String()
}

func describeBlockInfos(blocks []domain.BlockInfo) string {
	var b strings.Builder
	for _, bl := range blocks {
		fmt.Fprintf(&b, "[%d,%d)", bl.Start, bl.End)
	}
	return b.String()
}
