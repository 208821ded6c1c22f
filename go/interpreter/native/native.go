// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

// Package native implements an interpreter running contracts implemented in
// Go. A contract is registered as a named module; its deployed code is the
// module discriminant followed by the module name.
package native

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/log"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/skribe-dev/skribe/go/deploy"
	"github.com/skribe-dev/skribe/go/tosca"
)

// Registers the native interpreter as a possible interpreter implementation.
func init() {
	configs := map[string]Config{
		"native":         {},
		"native-logging": {WithLogging: true},
	}
	for name, config := range configs {
		config := config
		tosca.MustRegisterInterpreterFactory(name, func(any) (tosca.Interpreter, error) {
			return NewInterpreter(config)
		})
	}
}

type Config struct {
	// CacheSize is the number of resolved modules kept in the cache. Zero
	// selects the default size, a negative size disables the cache.
	CacheSize int
	// WithLogging traces every module call.
	WithLogging bool
}

const defaultCacheSize = 1 << 10

type interpreter struct {
	config Config
	cache  *lru.Cache[tosca.Hash, resolved]
	log    log.Logger
}

type resolved struct {
	name   string
	module Module
}

func NewInterpreter(config Config) (*interpreter, error) {
	res := &interpreter{
		config: config,
		log:    log.New("module", "native"),
	}
	if config.CacheSize >= 0 {
		capacity := config.CacheSize
		if capacity == 0 {
			capacity = defaultCacheSize
		}
		cache, err := lru.New[tosca.Hash, resolved](capacity)
		if err != nil {
			return nil, fmt.Errorf("failed to create module cache: %v", err)
		}
		res.cache = cache
	}
	return res, nil
}

func (v *interpreter) Run(params tosca.Parameters) (tosca.Result, error) {
	if params.Kind.IsCreate() {
		return v.deploy(params)
	}
	target, err := v.resolve(params.Code, params.CodeHash)
	if err != nil {
		return tosca.Result{}, err
	}
	if v.config.WithLogging {
		v.log.Info("Call", "module", target.name, "address", params.Recipient, "sender", params.Sender, "depth", params.Depth)
	}
	output, err := target.module.Call(newFrame(params))
	return v.result(params, output, err)
}

func (v *interpreter) deploy(params tosca.Parameters) (tosca.Result, error) {
	payload, err := deploy.ParseInitCode(params.Code)
	if err != nil {
		v.log.Debug("Invalid init code", "err", err)
		return tosca.Result{}, nil
	}
	name := string(payload)
	module, found := LookupModule(name)
	if !found {
		return tosca.Result{}, fmt.Errorf("%w: %q", ErrUnknownModule, name)
	}
	if v.config.WithLogging {
		v.log.Info("Deploy", "module", name, "address", params.Recipient, "sender", params.Sender)
	}
	if constructor, ok := module.(Constructor); ok {
		if err := constructor.Construct(newFrame(params)); err != nil {
			return v.result(params, nil, err)
		}
	}
	return tosca.Result{
		Success: true,
		Output:  tosca.Data(Code(name)),
		GasLeft: params.Gas,
	}, nil
}

func (v *interpreter) resolve(code tosca.Code, codeHash *tosca.Hash) (resolved, error) {
	if v.cache != nil && codeHash != nil {
		if res, found := v.cache.Get(*codeHash); found {
			return res, nil
		}
	}
	name, ok := ModuleName(code)
	if !ok {
		return resolved{}, ErrInvalidCode
	}
	module, found := LookupModule(name)
	if !found {
		return resolved{}, fmt.Errorf("%w: %q", ErrUnknownModule, name)
	}
	res := resolved{name: name, module: module}
	if v.cache != nil && codeHash != nil {
		v.cache.Add(*codeHash, res)
	}
	return res, nil
}

func (v *interpreter) result(params tosca.Parameters, output []byte, err error) (tosca.Result, error) {
	var revert *RevertError
	if errors.As(err, &revert) {
		if v.config.WithLogging {
			v.log.Info("Revert", "address", params.Recipient, "data", fmt.Sprintf("0x%x", revert.Data))
		}
		return tosca.Result{Output: revert.Data, GasLeft: params.Gas}, nil
	}
	if err != nil {
		return tosca.Result{}, err
	}
	return tosca.Result{Success: true, Output: output, GasLeft: params.Gas}, nil
}
