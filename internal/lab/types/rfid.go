package types

// RFIDIdentity is the identity data written alongside a generated card UID.
type RFIDIdentity struct {
	FullName string `json:"fullName"`
	IDNumber string `json:"idNumber"`
	Role     string `json:"role"`
	Status   Status `json:"status"`
}

// RFIDCredential is stored at akses/rfid_users/{uid}.
type RFIDCredential struct {
	FullName     string `json:"fullName"`
	IDNumber     string `json:"idNumber"`
	Role         string `json:"role"`
	UID          string `json:"uid"`
	RegisteredAt string `json:"registeredAt"`
	Status       Status `json:"status"`
}

// AccessLogEntry is stored at akses/rfid/{timestamp}.  The identity fields
// are copied from the credential at write time when one exists.
type AccessLogEntry struct {
	Timestamp     int64  `json:"timestamp"`
	UID           string `json:"uid"`
	WaktuReadable string `json:"waktu_readable"`
	FullName      string `json:"fullName,omitempty"`
	Role          string `json:"role,omitempty"`
	IDNumber      string `json:"idNumber,omitempty"`
}

// TapRequest is what a reader (or the console) sends to simulate a card
// presentation.
type TapRequest struct {
	UID string `json:"uid"`
}
