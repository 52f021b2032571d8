package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for content-addressed identity.
// Version suffix enables future algorithm migration.
const (
	DomainExpr     = "islproof/expr/v1"
	DomainContext  = "islproof/context/v1"
	DomainEvidence = "islproof/evidence/v1"
	DomainRun      = "islproof/run/v1"
)

// hashWithDomain computes SHA-256 hash with domain separation.
// Format: SHA256(domain + 0x00 + data)
// The null byte separator prevents domain/data boundary ambiguity.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// HashCanonical hashes the canonical encoding of v under domain.
func HashCanonical(domain string, v Value) (string, error) {
	canonical, err := marshalCanonical(v)
	if err != nil {
		return "", fmt.Errorf("hash %s: %w", domain, err)
	}
	return hashWithDomain(domain, canonical), nil
}

// ExprHash hashes the canonical encoding of an expression tree.
func ExprHash(encoded Value) (string, error) {
	return HashCanonical(DomainExpr, encoded)
}

// ContextHash hashes the observable parts of an evaluation context.
func ContextHash(encoded Object) (string, error) {
	return HashCanonical(DomainContext, encoded)
}

// EvidenceID computes a stable ID for one clause evaluated against one
// execution. The same clause, execution and run always yield the same ID.
func EvidenceID(runID, executionID, clauseID string) (string, error) {
	obj := Object{
		"run_id":       String(runID),
		"execution_id": String(executionID),
		"clause_id":    String(clauseID),
	}
	return HashCanonical(DomainEvidence, obj)
}

// RunID computes a content-addressed ID for a verification run from its
// scenario name and the hashes of every contract clause it evaluated.
func RunID(scenario string, clauseHashes []string) (string, error) {
	hashes := make(List, len(clauseHashes))
	for i, h := range clauseHashes {
		hashes[i] = String(h)
	}
	obj := Object{
		"scenario": String(scenario),
		"clauses":  hashes,
	}
	return HashCanonical(DomainRun, obj)
}

// MustEvidenceID is like EvidenceID but panics on error.
// Use only in tests or when inputs are known to be valid.
func MustEvidenceID(runID, executionID, clauseID string) string {
	id, err := EvidenceID(runID, executionID, clauseID)
	if err != nil {
		panic(err)
	}
	return id
}
