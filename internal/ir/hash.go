package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for content-addressed identity.
// The version suffix leaves room for a future algorithm change.
const (
	DomainEntry = "rankvault/entry/v1"
	DomainState = "rankvault/state/v1"
)

// hashWithDomain computes SHA256(domain || 0x00 || data).
// The null separator keeps domain and data unambiguous.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// CallObject renders a call as an Object for hashing and display.
func CallObject(c Call) Object {
	args := c.Args
	if args == nil {
		args = Object{}
	}
	return Object{
		"action": String(c.Action),
		"caller": String(c.Caller),
		"epoch":  Int(c.Epoch),
		"args":   args,
	}
}

// OutcomeObject renders an outcome as an Object.
func OutcomeObject(o Outcome) Object {
	result := o.Result
	if result == nil {
		result = Object{}
	}
	return Object{
		"case":   String(o.Case),
		"result": result,
	}
}

// EntryID computes the content-addressed id of a journal entry.
// The id is stable across replays given the same flow token, seq, call and
// outcome.
func EntryID(flowToken string, seq int64, c Call, o Outcome) (string, error) {
	obj := Object{
		"flow_token": String(flowToken),
		"seq":        Int(seq),
		"call":       CallObject(c),
		"outcome":    OutcomeObject(o),
	}
	data, err := MarshalCanonical(obj)
	if err != nil {
		return "", fmt.Errorf("entry id: %w", err)
	}
	return hashWithDomain(DomainEntry, data), nil
}

// StateDigest hashes a canonical rendering of registry state.
func StateDigest(state Object) (string, error) {
	data, err := MarshalCanonical(state)
	if err != nil {
		return "", fmt.Errorf("state digest: %w", err)
	}
	return hashWithDomain(DomainState, data), nil
}
