package console

import (
	. "maragu.dev/gomponents"
	. "maragu.dev/gomponents/html"

	"github.com/BrandonDHaskell/Portunus/labconsole/internal/lab/types"
)

func editPage(u types.User, inFlight types.Modality) Node {
	methods := make([]Node, 0, len(types.Modalities))
	for _, m := range types.Modalities {
		methods = append(methods, Label(
			Input(Type("checkbox"), Name("method"), Value(string(m)), If(u.HasMethod(m), Checked())),
			Text(" "+m.Label()),
		))
	}

	return consolePage("Edit User", "users", inFlight, false,
		Div(
			Class("card modal"),
			H2(Text("Edit User "+u.ID)),
			Form(
				Class("stack-form"),
				Method("post"),
				Action("/console/users/"+u.ID+"/edit"),
				Label(For("fullName"), Text("Full Name")),
				Input(Type("text"), ID("fullName"), Name("fullName"), Value(u.FullName)),
				Label(For("idNumber"), Text("ID Number")),
				Input(Type("text"), ID("idNumber"), Name("idNumber"), Value(u.IDNumber)),
				Label(For("role"), Text("Role")),
				Select(ID("role"), Name("role"), Group(roleOptions(types.EditRoles, u.Role))),
				Label(For("status"), Text("Status")),
				Select(ID("status"), Name("status"),
					optionSelected(string(types.StatusActive), string(u.Status)),
					optionSelected(string(types.StatusInactive), string(u.Status)),
				),
				FieldSet(Legend(Text("Authentication Methods")), Group(methods)),
				Div(
					Button(Type("submit"), Text("Save")),
					Text(" "),
					A(Href("/console/users"), Text("Cancel")),
				),
			),
		),
	)
}
