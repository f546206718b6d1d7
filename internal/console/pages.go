package console

import (
	"strconv"
	"strings"

	. "maragu.dev/gomponents"
	. "maragu.dev/gomponents/html"

	"github.com/BrandonDHaskell/Portunus/labconsole/internal/lab/types"
)

type tabItem struct {
	Label string
	Href  string
	Key   string
}

var tabItems = []tabItem{
	{Label: types.ModalityFace.Label(), Href: "/console/register/face", Key: string(types.ModalityFace)},
	{Label: types.ModalityRFID.Label(), Href: "/console/register/rfid", Key: string(types.ModalityRFID)},
	{Label: types.ModalityFingerprint.Label(), Href: "/console/register/fingerprint", Key: string(types.ModalityFingerprint)},
	{Label: "Registered Users", Href: "/console/users", Key: "users"},
}

// consolePage is the shell shared by every tab. With refresh set the page
// reloads every second while a scan is in flight so the indicator clears when
// the scan settles. Only the register tabs ask for it; the edit form and the
// roster filter would lose typed input on reload.
func consolePage(title, active string, inFlight types.Modality, refresh bool, body ...Node) Node {
	tabs := make([]Node, 0, len(tabItems))
	for _, item := range tabItems {
		className := ""
		if item.Key == active {
			className = "active"
		}
		tabs = append(tabs, A(
			Href(item.Href),
			Class(className),
			Text(item.Label),
			If(inFlight != "" && string(inFlight) == item.Key, Span(Class("busy"), Text("scanning…"))),
		))
	}

	return Doctype(HTML(
		Lang("en"),
		Head(
			Meta(Charset("utf-8")),
			Meta(Name("viewport"), Content("width=device-width, initial-scale=1")),
			If(refresh && inFlight != "", Meta(Attr("http-equiv", "refresh"), Content("1"))),
			TitleEl(Text(title+" | Access Lab Console")),
			Link(Rel("stylesheet"), Href("/console/static/app.css")),
			Script(
				Type("module"),
				Src("https://cdn.jsdelivr.net/gh/starfederation/datastar@1.0.0-RC.7/bundles/datastar.js"),
			),
		),
		Body(
			Main(
				Class("layout"),
				H1(Text("Access Lab Console")),
				Nav(Class("tabs"), Group(tabs)),
				Group(body),
			),
		),
	))
}

func notice(kind, msg string) Node {
	if msg == "" {
		return nil
	}
	return Div(Class("notice "+kind), Text(msg))
}

// alertScript raises a blocking browser alert with msg.
func alertScript(msg string) Node {
	return Script(Raw("alert(" + strconv.Quote(msg) + ");"))
}

func optionSelected(value, selected string) Node {
	if value == selected {
		return Option(Value(value), Selected(), Text(value))
	}
	return Option(Value(value), Text(value))
}

// roleOptions keeps a role that is not among choices selectable.
func roleOptions(choices []string, selected string) []Node {
	nodes := make([]Node, 0, len(choices)+1)
	found := false
	for _, c := range choices {
		if c == selected {
			found = true
		}
		nodes = append(nodes, optionSelected(c, selected))
	}
	if !found && selected != "" {
		nodes = append(nodes, optionSelected(selected, selected))
	}
	return nodes
}

func methodBadges(methods []types.Modality) Node {
	if len(methods) == 0 {
		return Span(Class("muted"), Text("-"))
	}
	nodes := make([]Node, 0, len(methods))
	for _, m := range methods {
		nodes = append(nodes, Span(Class("badge"), Text(m.Label())))
	}
	return Group(nodes)
}

// anyContainsExpr matches the server-side roster filter: a case-insensitive
// substring of any one of values.
func anyContainsExpr(values ...string) string {
	quoted := make([]string, len(values))
	for i, v := range values {
		quoted[i] = strconv.Quote(strings.ToLower(v))
	}
	return "$q === '' || [" + strings.Join(quoted, ",") + "].some(v => v.includes($q.toLowerCase()))"
}
