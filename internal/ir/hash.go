package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for content-addressed digests.
// Version suffix enables future algorithm migration.
const (
	DomainProgram = "logicsim/program/v1"
	DomainTrace   = "logicsim/trace/v1"
)

// hashWithDomain computes SHA-256 with domain separation.
// Format: SHA256(domain + 0x00 + data)
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// TraceDigest hashes a sequence of canonical trace records.
// Two runs with equal digests produced identical change and assertion streams.
func TraceDigest(records []map[string]any) (string, error) {
	arr := make([]any, len(records))
	for i, r := range records {
		arr[i] = r
	}
	canonical, err := MarshalCanonical(arr)
	if err != nil {
		return "", fmt.Errorf("TraceDigest: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainTrace, canonical), nil
}

// ProgramDigest hashes the structure of a program. Spans are excluded,
// so reformatting the source does not change the digest.
func ProgramDigest(p *Program) (string, error) {
	units := make([]any, 0, len(p.Circuits)+len(p.Processes)+len(p.Tests))
	for _, u := range p.Units() {
		body := make([]any, len(u.Body))
		for i, st := range u.Body {
			body[i] = StatementString(st)
		}
		units = append(units, map[string]any{
			"kind":    u.Kind.String(),
			"name":    u.Name.Text,
			"inputs":  names(u.Inputs),
			"outputs": names(u.Outputs),
			"body":    body,
		})
	}
	canonical, err := MarshalCanonical(map[string]any{"units": units})
	if err != nil {
		return "", fmt.Errorf("ProgramDigest: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainProgram, canonical), nil
}

func names(ns []Name) []string {
	out := make([]string, len(ns))
	for i, n := range ns {
		out[i] = n.Text
	}
	return out
}

// StatementString renders a statement on one line.
func StatementString(st Statement) string {
	switch s := st.(type) {
	case *Assign:
		return fmt.Sprintf("%v = %s", names(s.Targets), s.Expr)
	case *Assert:
		return fmt.Sprintf("assert %s == %s", s.Expr, s.Expected)
	case *Directive:
		return fmt.Sprintf("%s %d", s.Kind, s.Time)
	default:
		return fmt.Sprintf("%T", st)
	}
}
