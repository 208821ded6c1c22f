// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package native

import (
	"fmt"
	"strings"
	"sync"

	"github.com/skribe-dev/skribe/go/deploy"
	"github.com/skribe-dev/skribe/go/tosca"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

// Module is a contract implemented in Go. The deployed code of a module is
// the module discriminant followed by the module's registered name.
type Module interface {
	// Call executes a message call to the module. Returning a RevertError
	// reverts the call, any other error aborts the whole run.
	Call(*Frame) ([]byte, error)
}

// Constructor is implemented by modules running code when being deployed.
type Constructor interface {
	Construct(*Frame) error
}

// ModuleFunc adapts a function to the Module interface.
type ModuleFunc func(*Frame) ([]byte, error)

func (f ModuleFunc) Call(frame *Frame) ([]byte, error) {
	return f(frame)
}

var (
	modules      = map[string]Module{}
	modulesMutex sync.Mutex
)

// RegisterModule makes a module available under the given name. Names are
// case-sensitive since they become part of the deployed code.
func RegisterModule(name string, module Module) error {
	if name == "" || strings.TrimSpace(name) != name {
		return fmt.Errorf("invalid module name %q", name)
	}
	if module == nil {
		return fmt.Errorf("cannot register nil module")
	}
	modulesMutex.Lock()
	defer modulesMutex.Unlock()
	if _, found := modules[name]; found {
		return fmt.Errorf("module %q already registered", name)
	}
	modules[name] = module
	return nil
}

func MustRegisterModule(name string, module Module) {
	if err := RegisterModule(name, module); err != nil {
		panic(err)
	}
}

func LookupModule(name string) (Module, bool) {
	modulesMutex.Lock()
	defer modulesMutex.Unlock()
	module, found := modules[name]
	return module, found
}

// Modules lists the names of all registered modules in sorted order.
func Modules() []string {
	modulesMutex.Lock()
	defer modulesMutex.Unlock()
	res := maps.Keys(modules)
	slices.Sort(res)
	return res
}

// Code returns the deployed code of the named module.
func Code(name string) tosca.Code {
	return append(deploy.Discriminant(), name...)
}

// InitCode returns the init code deploying the named module.
func InitCode(name string) []byte {
	return deploy.BuildInitCode([]byte(name))
}

// ModuleName extracts the module name from deployed code.
func ModuleName(code tosca.Code) (string, bool) {
	name, ok := deploy.ModuleFromCode(code)
	if !ok {
		return "", false
	}
	return string(name), true
}
