package httpapi

import (
	"errors"
	"io"
	"net/http"

	"google.golang.org/protobuf/encoding/protowire"

	"github.com/BrandonDHaskell/Portunus/labconsole/internal/lab/types"
)

// maxRequestBody caps request bodies for both protobuf and JSON payloads.
// A tap is a single UID; forms are a handful of short strings.
const maxRequestBody = 4096

// Field numbers of the reader wire messages.
//
//	message TapRequest  { string uid = 1; }
//	message TapResponse { int64 timestamp = 1; string uid = 2; string waktu_readable = 3;
//	                      string full_name = 4; string role = 5; string id_number = 6; bool known = 7; }
const (
	tapReqUID = 1

	tapRespTimestamp     = 1
	tapRespUID           = 2
	tapRespWaktuReadable = 3
	tapRespFullName      = 4
	tapRespRole          = 5
	tapRespIDNumber      = 6
	tapRespKnown         = 7
)

var errBadProto = errors.New("malformed protobuf payload")

// isProtobuf returns true if the request's Content-Type indicates a
// protobuf payload.  Readers send "application/x-protobuf".
func isProtobuf(r *http.Request) bool {
	ct := r.Header.Get("Content-Type")
	return ct == "application/x-protobuf" ||
		ct == "application/protobuf" ||
		ct == "application/octet-stream"
}

func readBody(r *http.Request) ([]byte, error) {
	return io.ReadAll(io.LimitReader(r.Body, maxRequestBody))
}

// decodeTapRequest parses a TapRequest, skipping unknown fields.
func decodeTapRequest(b []byte) (types.TapRequest, error) {
	var req types.TapRequest
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return req, errBadProto
		}
		b = b[n:]

		if num == tapReqUID && typ == protowire.BytesType {
			v, n := protowire.ConsumeString(b)
			if n < 0 {
				return req, errBadProto
			}
			req.UID = v
			b = b[n:]
			continue
		}

		n = protowire.ConsumeFieldValue(num, typ, b)
		if n < 0 {
			return req, errBadProto
		}
		b = b[n:]
	}
	return req, nil
}

// EncodeTapRequest is the reader-side encoding of a tap.
func EncodeTapRequest(req types.TapRequest) []byte {
	var b []byte
	b = appendString(b, tapReqUID, req.UID)
	return b
}

func encodeTapResponse(e types.AccessLogEntry) []byte {
	var b []byte
	b = protowire.AppendTag(b, tapRespTimestamp, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(e.Timestamp))
	b = appendString(b, tapRespUID, e.UID)
	b = appendString(b, tapRespWaktuReadable, e.WaktuReadable)
	b = appendString(b, tapRespFullName, e.FullName)
	b = appendString(b, tapRespRole, e.Role)
	b = appendString(b, tapRespIDNumber, e.IDNumber)
	if knownTap(e) {
		b = protowire.AppendTag(b, tapRespKnown, protowire.VarintType)
		b = protowire.AppendVarint(b, protowire.EncodeBool(true))
	}
	return b
}

// DecodeTapResponse is the reader-side counterpart of encodeTapResponse.
func DecodeTapResponse(b []byte) (types.AccessLogEntry, error) {
	var e types.AccessLogEntry
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return e, errBadProto
		}
		b = b[n:]

		switch {
		case num == tapRespTimestamp && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return e, errBadProto
			}
			e.Timestamp = int64(v)
			b = b[n:]
		case typ == protowire.BytesType && num >= tapRespUID && num <= tapRespIDNumber:
			v, n := protowire.ConsumeString(b)
			if n < 0 {
				return e, errBadProto
			}
			switch num {
			case tapRespUID:
				e.UID = v
			case tapRespWaktuReadable:
				e.WaktuReadable = v
			case tapRespFullName:
				e.FullName = v
			case tapRespRole:
				e.Role = v
			case tapRespIDNumber:
				e.IDNumber = v
			}
			b = b[n:]
		default:
			n = protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return e, errBadProto
			}
			b = b[n:]
		}
	}
	return e, nil
}

// knownTap reports whether identity fields were copied from a credential.
func knownTap(e types.AccessLogEntry) bool {
	return e.FullName != "" || e.IDNumber != "" || e.Role != ""
}

func appendString(b []byte, num protowire.Number, v string) []byte {
	if v == "" {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendString(b, v)
}

// writeProto writes an already-encoded message with the given HTTP status.
func writeProto(w http.ResponseWriter, status int, data []byte) {
	w.Header().Set("Content-Type", "application/x-protobuf")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}
