/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package ledger provides an in-memory ledger for tests and local agents.
package ledger

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/hyperledger/aries-vcx-go/pkg/ledger"
	"github.com/hyperledger/aries-vcx-go/pkg/vcxerr"
)

// Error codes reported by the mock ledger.
const (
	CodeInvalidTransaction int32 = 113
	CodeDuplicateRequest   int32 = 306
	CodeRejected           int32 = 307
)

// Error is a ledger failure carrying a numeric code.
type Error struct {
	Code int32
	Msg  string
}

func (e *Error) Error() string {
	return fmt.Sprintf("ledger error %d: %s", e.Code, e.Msg)
}

// ErrorCode returns the ledger error code.
func (e *Error) ErrorCode() int32 {
	return e.Code
}

type revocation struct {
	index int
	time  int64
}

type revRegState struct {
	created int64
	entries []revocation
}

// MockLedger is an in-memory ledger. With AutoCommit unset submitted transactions stay pending until
// Commit is called.
type MockLedger struct {
	AutoCommit      bool
	SubmitErr       error
	QueryErr        error
	Fees            ledger.Fees
	AuthorAgreement *ledger.AuthorAgreement
	// Now returns the ledger time in unix seconds.
	Now func() int64

	lock        sync.Mutex
	seqNo       int64
	objects     map[ledger.RequestType]map[string][]byte
	pending     map[string][]byte
	pendingIDs  []string
	receipts    map[string]ledger.Receipt
	revRegs     map[string]*revRegState
	submissions map[string]int
}

// New returns an auto-committing ledger.
func New() *MockLedger {
	return &MockLedger{AutoCommit: true}
}

// Submit accepts a signed transaction.
func (m *MockLedger) Submit(_ context.Context, txn []byte) (ledger.Receipt, error) {
	m.lock.Lock()
	defer m.lock.Unlock()

	m.init()

	if m.SubmitErr != nil {
		return ledger.Receipt{}, m.SubmitErr
	}

	reqID := ledger.ReqID(txn)
	if reqID == "" {
		return ledger.Receipt{}, &Error{Code: CodeInvalidTransaction, Msg: "missing reqId"}
	}

	m.submissions[reqID]++

	if _, done := m.receipts[reqID]; done {
		return ledger.Receipt{}, &Error{Code: CodeDuplicateRequest, Msg: "request " + reqID + " already committed"}
	}

	if _, queued := m.pending[reqID]; queued {
		return ledger.Receipt{}, &Error{Code: CodeDuplicateRequest, Msg: "request " + reqID + " already pending"}
	}

	if err := checkSignatures(txn); err != nil {
		return ledger.Receipt{}, err
	}

	if _, _, err := ledger.Operation(txn); err != nil {
		return ledger.Receipt{}, &Error{Code: CodeInvalidTransaction, Msg: err.Error()}
	}

	if !m.AutoCommit {
		m.pending[reqID] = txn
		m.pendingIDs = append(m.pendingIDs, reqID)

		return ledger.Receipt{ReqID: reqID}, nil
	}

	return m.apply(reqID, txn)
}

// Commit writes a pending transaction.
func (m *MockLedger) Commit(reqID string) (ledger.Receipt, error) {
	m.lock.Lock()
	defer m.lock.Unlock()

	m.init()

	txn, ok := m.pending[reqID]
	if !ok {
		return ledger.Receipt{}, fmt.Errorf("no pending request %s", reqID)
	}

	delete(m.pending, reqID)

	for i, id := range m.pendingIDs {
		if id == reqID {
			m.pendingIDs = append(m.pendingIDs[:i], m.pendingIDs[i+1:]...)

			break
		}
	}

	return m.apply(reqID, txn)
}

// CommitAll writes every pending transaction in submission order.
func (m *MockLedger) CommitAll() error {
	for _, id := range m.Pending() {
		if _, err := m.Commit(id); err != nil {
			return err
		}
	}

	return nil
}

// Pending returns the request ids of uncommitted transactions in submission order.
func (m *MockLedger) Pending() []string {
	m.lock.Lock()
	defer m.lock.Unlock()

	return append([]string(nil), m.pendingIDs...)
}

// Submissions returns how many times a request id was submitted.
func (m *MockLedger) Submissions(reqID string) int {
	m.lock.Lock()
	defer m.lock.Unlock()

	return m.submissions[reqID]
}

// Query reads a committed object.
func (m *MockLedger) Query(_ context.Context, req ledger.Request) ([]byte, error) {
	m.lock.Lock()
	defer m.lock.Unlock()

	m.init()

	if m.QueryErr != nil {
		return nil, m.QueryErr
	}

	switch req.Type {
	case ledger.TxnRequest:
		receipt, ok := m.receipts[req.ID]
		if !ok {
			return nil, vcxerr.New(vcxerr.NotFound, "transaction %s is not committed", req.ID)
		}

		return json.Marshal(receipt)
	case ledger.RevRegDeltaRequest:
		return m.delta(req.ID, req.To)
	case ledger.SchemaRequest, ledger.CredDefRequest, ledger.RevRegDefRequest:
		raw, ok := m.objects[req.Type][req.ID]
		if !ok {
			return nil, vcxerr.New(vcxerr.NotFound, "%s %s not found on ledger", req.Type, req.ID)
		}

		return raw, nil
	default:
		return nil, &Error{Code: CodeInvalidTransaction, Msg: "unknown request type " + string(req.Type)}
	}
}

// GetFees returns the configured fees.
func (m *MockLedger) GetFees(context.Context) (ledger.Fees, error) {
	m.lock.Lock()
	defer m.lock.Unlock()

	fees := ledger.Fees{}
	for k, v := range m.Fees {
		fees[k] = v
	}

	return fees, nil
}

// GetAuthorAgreement returns the configured agreement.
func (m *MockLedger) GetAuthorAgreement(context.Context) (ledger.AuthorAgreement, error) {
	m.lock.Lock()
	defer m.lock.Unlock()

	if m.AuthorAgreement == nil {
		return ledger.AuthorAgreement{}, vcxerr.New(vcxerr.NotFound, "ledger has no author agreement")
	}

	return *m.AuthorAgreement, nil
}

// must be called with the lock held.
func (m *MockLedger) init() {
	if m.objects == nil {
		m.objects = map[ledger.RequestType]map[string][]byte{
			ledger.SchemaRequest:    {},
			ledger.CredDefRequest:   {},
			ledger.RevRegDefRequest: {},
		}
		m.pending = map[string][]byte{}
		m.receipts = map[string]ledger.Receipt{}
		m.revRegs = map[string]*revRegState{}
		m.submissions = map[string]int{}
	}
}

func (m *MockLedger) now() int64 {
	if m.Now != nil {
		return m.Now()
	}

	return time.Now().Unix()
}

// must be called with the lock held.
func (m *MockLedger) apply(reqID string, txn []byte) (ledger.Receipt, error) {
	typ, data, err := ledger.Operation(txn)
	if err != nil {
		return ledger.Receipt{}, &Error{Code: CodeInvalidTransaction, Msg: err.Error()}
	}

	txnTime := m.now()

	switch typ {
	case ledger.SchemaTxnType:
		err = m.applySchema(data)
	case ledger.CredDefTxnType:
		err = m.applyCredDef(data)
	case ledger.RevRegDefTxnType:
		err = m.applyRevRegDef(data, txnTime)
	case ledger.RevRegEntryTxnType:
		err = m.applyRevRegEntry(data, txnTime)
	default:
		err = &Error{Code: CodeInvalidTransaction, Msg: "unsupported transaction type " + typ}
	}

	if err != nil {
		return ledger.Receipt{}, err
	}

	m.seqNo++
	receipt := ledger.Receipt{ReqID: reqID, SeqNo: m.seqNo, TxnTime: txnTime}
	m.receipts[reqID] = receipt

	return receipt, nil
}

func (m *MockLedger) applySchema(data []byte) error {
	schema := &ledger.Schema{}
	if err := json.Unmarshal(data, schema); err != nil {
		return &Error{Code: CodeInvalidTransaction, Msg: err.Error()}
	}

	if _, exists := m.objects[ledger.SchemaRequest][schema.ID]; exists {
		return &Error{Code: CodeRejected, Msg: "schema " + schema.ID + " already exists"}
	}

	schema.SeqNo = m.seqNo + 1

	raw, err := json.Marshal(schema)
	if err != nil {
		return err
	}

	m.objects[ledger.SchemaRequest][schema.ID] = raw

	return nil
}

func (m *MockLedger) applyCredDef(data []byte) error {
	credDef := &ledger.CredDef{}
	if err := json.Unmarshal(data, credDef); err != nil {
		return &Error{Code: CodeInvalidTransaction, Msg: err.Error()}
	}

	if _, exists := m.objects[ledger.CredDefRequest][credDef.ID]; exists {
		return &Error{Code: CodeRejected, Msg: "credential definition " + credDef.ID + " already exists"}
	}

	m.objects[ledger.CredDefRequest][credDef.ID] = data

	return nil
}

func (m *MockLedger) applyRevRegDef(data []byte, txnTime int64) error {
	def := &ledger.RevRegDef{}
	if err := json.Unmarshal(data, def); err != nil {
		return &Error{Code: CodeInvalidTransaction, Msg: err.Error()}
	}

	if _, exists := m.objects[ledger.RevRegDefRequest][def.ID]; exists {
		return &Error{Code: CodeRejected, Msg: "revocation registry " + def.ID + " already exists"}
	}

	m.objects[ledger.RevRegDefRequest][def.ID] = data
	m.revRegs[def.ID] = &revRegState{created: txnTime}

	return nil
}

func (m *MockLedger) applyRevRegEntry(data []byte, txnTime int64) error {
	entry := &ledger.RevRegEntry{}
	if err := json.Unmarshal(data, entry); err != nil {
		return &Error{Code: CodeInvalidTransaction, Msg: err.Error()}
	}

	state, ok := m.revRegs[entry.RevRegDefID]
	if !ok {
		return &Error{Code: CodeRejected, Msg: "unknown revocation registry " + entry.RevRegDefID}
	}

	for _, idx := range entry.Revoked {
		state.entries = append(state.entries, revocation{index: idx, time: txnTime})
	}

	return nil
}

func (m *MockLedger) delta(id string, to int64) ([]byte, error) {
	state, ok := m.revRegs[id]
	if !ok {
		return nil, vcxerr.New(vcxerr.NotFound, "revocation registry %s not found on ledger", id)
	}

	if to == 0 {
		to = m.now()
	}

	delta := ledger.RevRegDelta{RevRegDefID: id, Revoked: map[int]int64{}, Timestamp: state.created}

	for _, r := range state.entries {
		if r.time > to {
			continue
		}

		if _, seen := delta.Revoked[r.index]; !seen {
			delta.Revoked[r.index] = r.time
		}

		if r.time > delta.Timestamp {
			delta.Timestamp = r.time
		}
	}

	return json.Marshal(delta)
}

func checkSignatures(txn []byte) error {
	sigs := ledger.Signatures(txn)

	if len(sigs[ledger.Submitter(txn)]) == 0 {
		return &Error{Code: CodeInvalidTransaction, Msg: "transaction is not signed by its author"}
	}

	if endorser := ledger.EndorserOf(txn); endorser != "" && len(sigs[endorser]) == 0 {
		return &Error{Code: CodeInvalidTransaction, Msg: "transaction is not signed by its endorser"}
	}

	return nil
}
