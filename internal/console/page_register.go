package console

import (
	"cmp"
	"fmt"
	"slices"

	. "maragu.dev/gomponents"
	. "maragu.dev/gomponents/html"

	"github.com/BrandonDHaskell/Portunus/labconsole/internal/lab/types"
)

type registerView struct {
	Modality types.Modality
	InFlight types.Modality
	Form     types.RegistrationForm
	OK       string
	Error    string
	Alert    bool

	// RFID tab only.
	Credentials []types.RFIDCredential
	AccessLog   []types.AccessLogEntry
	RFIDError   string
}

func registerPage(v registerView) Node {
	title := v.Modality.Label() + " Registration"
	busy := v.InFlight != ""

	submitLabel := "Start " + v.Modality.Label() + " Scan"
	if v.InFlight == v.Modality {
		submitLabel = "Scanning..."
	}

	role := v.Form.Role
	if role == "" {
		role = types.DefaultRole
	}

	form := Div(
		Class("card"),
		H2(Text(title)),
		If(v.InFlight == v.Modality, notice("busy", "Scanning "+v.Modality.Label()+", please hold still...")),
		If(busy && v.InFlight != v.Modality, notice("busy", v.InFlight.Label()+" scan in progress.")),
		Form(
			Class("stack-form"),
			Method("post"),
			Action("/console/register/"+string(v.Modality)),
			Attr("onsubmit", "var b=this.querySelector('button');b.disabled=true;b.textContent='Scanning...';"),
			Label(For("fullName"), Text("Full Name")),
			Input(Type("text"), ID("fullName"), Name("fullName"), Value(v.Form.FullName), Placeholder("Enter full name")),
			Label(For("idNumber"), Text("ID Number")),
			Input(Type("text"), ID("idNumber"), Name("idNumber"), Value(v.Form.IDNumber), Placeholder("Student or staff ID")),
			Label(For("role"), Text("Role")),
			Select(ID("role"), Name("role"), Group(roleOptions(types.RegistrationRoles, role))),
			Button(Type("submit"), If(busy, Disabled()), Text(submitLabel)),
		),
	)

	body := []Node{
		notice("ok", v.OK),
		notice("error", v.Error),
		form,
	}
	if v.Modality == types.ModalityRFID {
		body = append(body, rfidSections(v)...)
	}
	if v.Alert && v.Error != "" {
		body = append(body, alertScript(v.Error))
	}

	return consolePage(title, string(v.Modality), v.InFlight, true, body...)
}

func rfidSections(v registerView) []Node {
	logs := slices.Clone(v.AccessLog)
	slices.SortFunc(logs, func(a, b types.AccessLogEntry) int { return cmp.Compare(b.Timestamp, a.Timestamp) })

	credRows := make([]Node, 0, len(v.Credentials))
	for _, c := range v.Credentials {
		credRows = append(credRows, Tr(
			Td(Code(Text(c.UID))),
			Td(Text(c.FullName)),
			Td(Text(c.IDNumber)),
			Td(Text(c.Role)),
			Td(Text(c.RegisteredAt)),
			Td(Text(string(c.Status))),
		))
	}

	logRows := make([]Node, 0, len(logs))
	for _, e := range logs {
		who := e.FullName
		if who == "" {
			who = "unregistered card"
		}
		logRows = append(logRows, Tr(
			Td(Text(e.WaktuReadable)),
			Td(Code(Text(e.UID))),
			Td(Text(who)),
			Td(Text(e.IDNumber)),
			Td(Text(e.Role)),
		))
	}

	return []Node{
		notice("error", v.RFIDError),
		Div(
			Class("card"),
			H2(Text("Simulate Card Tap")),
			Form(
				Class("stack-form"),
				Method("post"),
				Action("/console/rfid/tap"),
				Label(For("uid"), Text("Card UID")),
				Input(Type("text"), ID("uid"), Name("uid"), Placeholder("8 hex characters")),
				Button(Type("submit"), Text("Tap")),
			),
		),
		Div(
			Class("card"),
			H2(Text(fmt.Sprintf("Registered Cards (%d)", len(v.Credentials)))),
			Table(
				THead(Tr(Th(Text("UID")), Th(Text("Name")), Th(Text("ID Number")), Th(Text("Role")), Th(Text("Registered")), Th(Text("Status")))),
				TBody(Group(credRows)),
			),
		),
		Div(
			Class("card"),
			H2(Text(fmt.Sprintf("Access Log (%d)", len(logs)))),
			Table(
				THead(Tr(Th(Text("Time")), Th(Text("UID")), Th(Text("Name")), Th(Text("ID Number")), Th(Text("Role")))),
				TBody(Group(logRows)),
			),
		),
	}
}
