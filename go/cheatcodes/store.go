// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package cheatcodes

import (
	"bytes"

	"github.com/skribe-dev/skribe/go/tosca"
	"golang.org/x/crypto/sha3"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

// Account is the state of a single address in a Store.
type Account struct {
	Balance tosca.Value
	Nonce   uint64
	Code    tosca.Code
	Storage map[tosca.Key]tosca.Word
}

func (a Account) clone() Account {
	res := a
	res.Code = bytes.Clone(a.Code)
	if a.Storage != nil {
		res.Storage = maps.Clone(a.Storage)
	}
	return res
}

func (a Account) equal(b Account) bool {
	return a.Balance == b.Balance &&
		a.Nonce == b.Nonce &&
		bytes.Equal(a.Code, b.Code) &&
		maps.Equal(a.Storage, b.Storage)
}

// Store is an in-memory world state with an undo journal. Accounts are created
// lazily by the first write addressing them and never removed, except when
// the write creating them is rolled back. Unset storage slots read as zero.
//
// Besides the world state the store collects the logs emitted during a run,
// so that rolling back a snapshot also drops logs of reverted calls.
type Store struct {
	accounts map[tosca.Address]Account
	logs     []tosca.Log
	undo     []func()
}

func NewStore() *Store {
	return &Store{accounts: map[tosca.Address]Account{}}
}

// Clone creates an independent deep copy of the store. The undo journal is
// not copied, snapshots taken on the original are not valid on the copy.
func (s *Store) Clone() *Store {
	res := &Store{
		accounts: make(map[tosca.Address]Account, len(s.accounts)),
		logs:     slices.Clone(s.logs),
	}
	for addr, account := range s.accounts {
		res.accounts[addr] = account.clone()
	}
	return res
}

func (s *Store) AccountExists(addr tosca.Address) bool {
	_, found := s.accounts[addr]
	return found
}

// Touch creates an empty account at the given address if there is none.
func (s *Store) Touch(addr tosca.Address) {
	s.update(addr, func(*Account) {})
}

func (s *Store) GetBalance(addr tosca.Address) tosca.Value {
	return s.accounts[addr].Balance
}

func (s *Store) SetBalance(addr tosca.Address, value tosca.Value) {
	s.update(addr, func(a *Account) { a.Balance = value })
}

func (s *Store) GetNonce(addr tosca.Address) uint64 {
	return s.accounts[addr].Nonce
}

func (s *Store) SetNonce(addr tosca.Address, nonce uint64) {
	s.update(addr, func(a *Account) { a.Nonce = nonce })
}

func (s *Store) GetCode(addr tosca.Address) tosca.Code {
	return bytes.Clone(s.accounts[addr].Code)
}

// GetCodeHash returns the keccak256 hash of the code of the account, or the
// zero hash if the account does not exist.
func (s *Store) GetCodeHash(addr tosca.Address) tosca.Hash {
	account, found := s.accounts[addr]
	if !found {
		return tosca.Hash{}
	}
	return Keccak256(account.Code)
}

func (s *Store) SetCode(addr tosca.Address, code tosca.Code) {
	code = bytes.Clone(code)
	s.update(addr, func(a *Account) { a.Code = code })
}

func (s *Store) GetStorage(addr tosca.Address, key tosca.Key) tosca.Word {
	return s.accounts[addr].Storage[key]
}

func (s *Store) SetStorage(addr tosca.Address, key tosca.Key, value tosca.Word) {
	s.update(addr, func(a *Account) {
		if a.Storage == nil {
			a.Storage = map[tosca.Key]tosca.Word{}
		}
	})
	storage := s.accounts[addr].Storage
	previous, found := storage[key]
	if value == (tosca.Word{}) {
		delete(storage, key)
	} else {
		storage[key] = value
	}
	s.undo = append(s.undo, func() {
		if found {
			storage[key] = previous
		} else {
			delete(storage, key)
		}
	})
}

func (s *Store) CreateSnapshot() tosca.Snapshot {
	return tosca.Snapshot(len(s.undo))
}

func (s *Store) RestoreSnapshot(snapshot tosca.Snapshot) {
	for len(s.undo) > int(snapshot) {
		s.undo[len(s.undo)-1]()
		s.undo = s.undo[:len(s.undo)-1]
	}
}

func (s *Store) EmitLog(log tosca.Log) {
	size := len(s.logs)
	s.logs = append(s.logs, log)
	s.undo = append(s.undo, func() { s.logs = s.logs[:size] })
}

func (s *Store) GetLogs() []tosca.Log {
	return slices.Clone(s.logs)
}

// Accounts lists all existing accounts in ascending order.
func (s *Store) Accounts() []tosca.Address {
	res := maps.Keys(s.accounts)
	slices.SortFunc(res, compareAddresses)
	return res
}

// Diff lists, in ascending order, all addresses whose account differs between
// the two stores, including accounts that only exist in one of them.
func (s *Store) Diff(other *Store) []tosca.Address {
	res := []tosca.Address{}
	for addr, account := range s.accounts {
		if theirs, found := other.accounts[addr]; !found || !account.equal(theirs) {
			res = append(res, addr)
		}
	}
	for addr := range other.accounts {
		if _, found := s.accounts[addr]; !found {
			res = append(res, addr)
		}
	}
	slices.SortFunc(res, compareAddresses)
	return res
}

func (s *Store) update(addr tosca.Address, change func(*Account)) {
	original, found := s.accounts[addr]
	modified := original
	change(&modified)
	s.accounts[addr] = modified
	s.undo = append(s.undo, func() {
		if found {
			s.accounts[addr] = original
		} else {
			delete(s.accounts, addr)
		}
	})
}

func compareAddresses(a, b tosca.Address) int {
	return bytes.Compare(a[:], b[:])
}

// Keccak256 computes the keccak256 hash of the given data.
func Keccak256(data []byte) tosca.Hash {
	hasher := sha3.NewLegacyKeccak256()
	hasher.Write(data)
	var res tosca.Hash
	hasher.Sum(res[:0])
	return res
}
