package console

import (
	"fmt"

	. "maragu.dev/gomponents"
	data "maragu.dev/gomponents-datastar"
	. "maragu.dev/gomponents/html"

	"github.com/BrandonDHaskell/Portunus/labconsole/internal/lab/types"
)

const deleteConfirm = "Are you sure you want to delete this user?"

func usersPage(users []types.User, q string, inFlight types.Modality, flash string) Node {
	rows := make([]Node, 0, len(users))
	for _, u := range users {
		rows = append(rows, Tr(
			data.Show(anyContainsExpr(u.FullName, u.IDNumber, u.Role)),
			Td(Text(u.ID)),
			Td(Text(u.FullName)),
			Td(Text(u.IDNumber)),
			Td(Text(u.Role)),
			Td(methodBadges(u.AuthMethods)),
			Td(Span(Class("status-"+string(u.Status)), Text(string(u.Status)))),
			Td(Text(u.RegisteredAt)),
			Td(
				Class("row-actions"),
				A(Href("/console/users/"+u.ID+"/edit"), Text("Edit")),
				Text(" "),
				Form(
					Method("post"),
					Action("/console/users/"+u.ID+"/delete"),
					Attr("onsubmit", fmt.Sprintf("return confirm(%q);", deleteConfirm)),
					Button(Type("submit"), Text("Delete")),
				),
			),
		))
	}

	return consolePage("Registered Users", "users", inFlight, false,
		notice("ok", flash),
		Div(
			data.Signals(map[string]any{"q": q}),
			Div(
				Class("card"),
				Form(
					Method("get"),
					Action("/console/users"),
					Label(For("q"), Text("Search")),
					Input(Type("search"), ID("q"), Name("q"), Value(q), data.Bind("q"), Placeholder("Search by name, ID or role")),
				),
			),
			Div(
				Class("card"),
				P(Class("muted"), Text(fmt.Sprintf("%d users", len(users)))),
				Table(
					THead(Tr(
						Th(Text("ID")), Th(Text("Name")), Th(Text("ID Number")), Th(Text("Role")),
						Th(Text("Auth Methods")), Th(Text("Status")), Th(Text("Registered")), Th(),
					)),
					TBody(Group(rows)),
				),
			),
		),
	)
}
