// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package harness

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/skribe-dev/skribe/go/interpreter/native"
	"github.com/skribe-dev/skribe/go/tosca"
	"golang.org/x/exp/slices"
)

// artifact is the subset of a compiler output file used by the harness.
type artifact struct {
	ABI              json.RawMessage `json:"abi"`
	DeployedBytecode struct {
		Object string `json:"object"`
	} `json:"deployedBytecode"`
}

// LoadArtifacts reads the test contracts from the compiler output files
// found in <dir>/out. The name of a contract is the name of its file without
// extension. Contracts without tests are skipped.
func LoadArtifacts(dir string) ([]*TestContract, error) {
	var res []*TestContract
	root := filepath.Join(dir, "out")
	err := filepath.WalkDir(root, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if entry.IsDir() || filepath.Ext(path) != ".json" {
			return nil
		}
		contract, err := loadArtifact(path)
		if err != nil {
			return fmt.Errorf("invalid artifact %s: %w", path, err)
		}
		if contract != nil {
			res = append(res, contract)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	slices.SortFunc(res, func(a, b *TestContract) int {
		return strings.Compare(a.Name, b.Name)
	})
	return res, nil
}

func loadArtifact(path string) (*TestContract, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var content artifact
	if err := json.Unmarshal(data, &content); err != nil {
		return nil, err
	}
	if len(content.ABI) == 0 {
		return nil, nil
	}
	definition, err := abi.JSON(bytes.NewReader(content.ABI))
	if err != nil {
		return nil, err
	}
	if !IsTestContract(definition) {
		return nil, nil
	}
	object := content.DeployedBytecode.Object
	if !strings.HasPrefix(object, "0x") {
		object = "0x" + object
	}
	code, err := hexutil.Decode(object)
	if err != nil {
		return nil, fmt.Errorf("invalid deployed bytecode: %w", err)
	}
	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return NewTestContract(name, definition, tosca.Code(code))
}

// NativeTestContracts lists the test contracts among the registered native
// modules.
func NativeTestContracts() ([]*TestContract, error) {
	var res []*TestContract
	for _, name := range native.Modules() {
		module, _ := native.LookupModule(name)
		described, ok := module.(interface{ ABI() abi.ABI })
		if !ok || !IsTestContract(described.ABI()) {
			continue
		}
		contract, err := NewTestContract(name, described.ABI(), native.Code(name))
		if err != nil {
			return nil, err
		}
		res = append(res, contract)
	}
	return res, nil
}
