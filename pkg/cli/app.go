package cli

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"golang.org/x/term"
)

type App struct {
	Name        string
	Synopsis    string
	Description string
	Authors     []string
	Repository  string
	Since       int
	FlagSet     *FlagSet
	Action      func(args []string) error

	Stdout io.Writer
	Stderr io.Writer
}

func NewApp(name string) *App {
	return &App{
		Name:    name,
		FlagSet: NewFlagSet(name),
		Stdout:  os.Stdout,
		Stderr:  os.Stderr,
	}
}

func (a *App) Run(arguments []string) error {
	help := false
	a.FlagSet.Bool(&help, "help", "h", false, "Display this information")

	if err := a.FlagSet.Parse(arguments); err != nil {
		fmt.Fprintf(a.Stderr, "%s: %v\n", a.Name, err)
		a.writeUsage(a.Stderr)
		return err
	}
	if help {
		a.writeHelp(a.Stdout)
		return nil
	}
	if a.Action != nil {
		return a.Action(a.FlagSet.Args())
	}
	return nil
}

// page accumulates one help or usage page. Columns are sized once from
// every entry so options and flag groups line up.
type page struct {
	sb        strings.Builder
	width     int
	leftWidth int
	indent    *IndentState
}

type IndentState struct {
	levels   []uint8
	baseUnit uint8
}

func NewIndentState() *IndentState {
	return &IndentState{levels: []uint8{0}, baseUnit: 4}
}

func (is *IndentState) Push() { is.levels = append(is.levels, is.levels[len(is.levels)-1]+1) }

func (is *IndentState) Pop() {
	if len(is.levels) > 1 {
		is.levels = is.levels[:len(is.levels)-1]
	}
}

func (is *IndentState) Current() string { return is.AtLevel(int(is.levels[len(is.levels)-1])) }

func (is *IndentState) AtLevel(level int) string {
	return strings.Repeat(" ", int(is.baseUnit)*level)
}

func (a *App) newPage(w io.Writer) *page {
	p := &page{width: terminalWidth(w), indent: NewIndentState()}
	for _, flag := range a.optionFlags() {
		p.leftWidth = max(p.leftWidth, len(flagString(flag)))
	}
	for _, g := range a.FlagSet.flagGroups {
		p.leftWidth = max(p.leftWidth, len(groupToggle(g, false)), len(groupToggle(g, true)))
		for _, e := range g.Flags {
			p.leftWidth = max(p.leftWidth, len(e.Name))
		}
	}
	return p
}

func (p *page) heading(title string) {
	fmt.Fprintf(&p.sb, "\n%s%s\n", p.indent.AtLevel(1), title)
}

func (p *page) entry(left, usage, right string) {
	pad := p.indent.AtLevel(2)
	room := p.width - len(pad) - p.leftWidth - 1 - len(right) - 2
	lines := wrapText(usage, max(room, 10))
	if len(lines) == 0 {
		lines = []string{""}
	}
	if right != "" {
		fmt.Fprintf(&p.sb, "%s%-*s %-*s  %s\n", pad, p.leftWidth, left, max(room, 10), lines[0], right)
	} else {
		fmt.Fprintf(&p.sb, "%s%-*s %s\n", pad, p.leftWidth, left, lines[0])
	}
	cont := strings.Repeat(" ", p.leftWidth+1)
	for _, l := range lines[1:] {
		fmt.Fprintf(&p.sb, "%s%s%s\n", pad, cont, l)
	}
}

func (a *App) writeUsage(w io.Writer) {
	p := a.newPage(w)
	fmt.Fprintf(&p.sb, "Usage: %s %s\n", a.Name, a.Synopsis)
	if flags := a.optionFlags(); len(flags) > 0 {
		p.heading("Options")
		for _, flag := range flags {
			p.entry(flagString(flag), flag.Usage, "")
		}
	}
	fmt.Fprintf(&p.sb, "\nRun '%s --help' for all available options and flags.\n", a.Name)
	io.WriteString(w, p.sb.String())
}

func (a *App) writeHelp(w io.Writer) {
	p := a.newPage(w)
	authors := strings.Join(a.Authors, ", ") + " and contributors"
	fmt.Fprintf(&p.sb, "\n%sCopyright (c) %d: %s\n", p.indent.AtLevel(1), a.Since, authors)
	if a.Repository != "" {
		fmt.Fprintf(&p.sb, "%sFor more details refer to %s\n", p.indent.AtLevel(1), a.Repository)
	}
	if a.Synopsis != "" {
		p.heading("Synopsis")
		synopsis := strings.NewReplacer("[", "<", "]", ">").Replace(a.Synopsis)
		fmt.Fprintf(&p.sb, "%s%s %s\n", p.indent.AtLevel(2), a.Name, synopsis)
	}
	if a.Description != "" {
		p.heading("Description")
		for _, l := range wrapText(a.Description, p.width-len(p.indent.AtLevel(2))) {
			fmt.Fprintf(&p.sb, "%s%s\n", p.indent.AtLevel(2), l)
		}
	}
	if flags := a.optionFlags(); len(flags) > 0 {
		p.heading("Options")
		for _, flag := range flags {
			right := ""
			if !flag.isBool() && flag.DefValue != "" {
				right = "|" + flag.DefValue + "|"
			}
			p.entry(flagString(flag), flag.Usage, right)
		}
	}

	groups := append([]FlagGroup(nil), a.FlagSet.flagGroups...)
	sort.Slice(groups, func(i, j int) bool { return groups[i].Name < groups[j].Name })
	for _, g := range groups {
		p.heading(g.Name)
		groupType := g.GroupType
		if groupType == "" {
			groupType = "flag"
		}
		p.entry(groupToggle(g, false), "Enable a specific "+groupType, "")
		p.entry(groupToggle(g, true), "Disable a specific "+groupType, "")
		if g.AvailableFlagsHeader != "" {
			fmt.Fprintf(&p.sb, "%s%s\n", p.indent.AtLevel(1), g.AvailableFlagsHeader)
		}
		entries := append([]FlagGroupEntry(nil), g.Flags...)
		sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })
		for _, e := range entries {
			mark := "|-|"
			if e.Enabled != nil && *e.Enabled && (e.Disabled == nil || !*e.Disabled) {
				mark = "|x|"
			}
			p.entry(e.Name, e.Usage, mark)
		}
	}
	io.WriteString(w, p.sb.String())
}

// optionFlags lists ordinary flags sorted by name, leaving out the
// generated members of flag groups.
func (a *App) optionFlags() []*Flag {
	grouped := make(map[string]bool)
	for _, g := range a.FlagSet.flagGroups {
		for _, e := range g.Flags {
			grouped[e.Prefix+e.Name] = true
			grouped[e.Prefix+"no-"+e.Name] = true
		}
	}
	var out []*Flag
	for name, flag := range a.FlagSet.flags {
		if !grouped[name] {
			out = append(out, flag)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func groupToggle(g FlagGroup, negated bool) string {
	groupType := g.GroupType
	if groupType == "" {
		groupType = "flag"
	}
	prefix := ""
	if len(g.Flags) > 0 {
		prefix = g.Flags[0].Prefix
	}
	if negated {
		return fmt.Sprintf("-%sno-<%s>", prefix, groupType)
	}
	return fmt.Sprintf("-%s<%s>", prefix, groupType)
}

func flagString(flag *Flag) string {
	var sb strings.Builder
	arg := ""
	if !flag.isBool() && flag.ExpectedType != "" {
		arg = " <" + flag.ExpectedType + ">"
	}
	if flag.Shorthand != "" {
		fmt.Fprintf(&sb, "-%s%s, ", flag.Shorthand, arg)
	}
	fmt.Fprintf(&sb, "--%s%s", flag.Name, arg)
	return sb.String()
}

// terminalWidth asks the terminal behind w for its width, falling back to
// 80 columns for pipes and files.
func terminalWidth(w io.Writer) int {
	f, ok := w.(*os.File)
	if !ok {
		return 80
	}
	width, _, err := term.GetSize(int(f.Fd()))
	if err != nil {
		return 80
	}
	return max(width, 20)
}

func wrapText(text string, maxWidth int) []string {
	if maxWidth <= 0 {
		return []string{text}
	}
	var lines []string
	var line strings.Builder
	for _, word := range strings.Fields(text) {
		if line.Len() > 0 && line.Len()+1+len(word) > maxWidth {
			lines = append(lines, line.String())
			line.Reset()
		}
		if line.Len() > 0 {
			line.WriteByte(' ')
		}
		line.WriteString(word)
	}
	if line.Len() > 0 {
		lines = append(lines, line.String())
	}
	return lines
}
