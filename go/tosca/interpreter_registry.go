// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package tosca

import (
	"fmt"
	"strings"
	"sync"

	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

// Interpreters are made available to the harness through this registry.
// Packages providing an implementation register a factory in their init
// code, so importing the package is enough to make it selectable by name.

// InterpreterFactory is the type of a function that creates a new Interpreter
// using an interpreter specific configuration.
type InterpreterFactory func(config any) (Interpreter, error)

var (
	interpreterRegistry     = map[string]InterpreterFactory{}
	interpreterRegistryLock sync.Mutex
)

// NewInterpreter performs a case-insensitive lookup for the given name and
// creates a new Interpreter using the optional configuration. An error is
// returned if no factory was registered under the given name.
func NewInterpreter(name string, config ...any) (Interpreter, error) {
	if len(config) > 1 {
		return nil, fmt.Errorf("invalid configuration: too many arguments")
	}
	factory := GetInterpreterFactory(name)
	if factory == nil {
		return nil, fmt.Errorf("interpreter not found: %s, available: %v", name, InterpreterNames())
	}
	var c any
	if len(config) > 0 {
		c = config[0]
	}
	return factory(c)
}

// GetInterpreterFactory returns the factory registered for the given name,
// or nil if there is none.
func GetInterpreterFactory(name string) InterpreterFactory {
	interpreterRegistryLock.Lock()
	defer interpreterRegistryLock.Unlock()
	return interpreterRegistry[strings.ToLower(name)]
}

// InterpreterNames lists the names of all registered interpreters in
// lexicographical order.
func InterpreterNames() []string {
	interpreterRegistryLock.Lock()
	names := maps.Keys(interpreterRegistry)
	interpreterRegistryLock.Unlock()
	slices.Sort(names)
	return names
}

// RegisterInterpreterFactory registers a factory under the given name. The
// name is not case-sensitive. Registering a nil factory or a second factory
// under the same name fails.
func RegisterInterpreterFactory(name string, factory InterpreterFactory) error {
	key := strings.ToLower(name)
	if factory == nil {
		return fmt.Errorf("invalid initialization: cannot register nil-factory using `%s`", key)
	}
	interpreterRegistryLock.Lock()
	defer interpreterRegistryLock.Unlock()
	if _, found := interpreterRegistry[key]; found {
		return fmt.Errorf("invalid initialization: multiple factories registered for `%s`", key)
	}
	interpreterRegistry[key] = factory
	return nil
}

// MustRegisterInterpreterFactory is like RegisterInterpreterFactory but
// panics on failure. It is intended for package initialization code.
func MustRegisterInterpreterFactory(name string, factory InterpreterFactory) {
	if err := RegisterInterpreterFactory(name, factory); err != nil {
		panic(err)
	}
}
