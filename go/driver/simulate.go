// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package main

import (
	"path/filepath"

	"github.com/ethereum/go-ethereum/log"
	"github.com/skribe-dev/skribe/go/cheatcodes"
	"github.com/skribe-dev/skribe/go/simulation"
	"github.com/skribe-dev/skribe/go/tosca"
)

// simulate runs the program in the given file on a fresh state. Files read
// by the program and its contracts are resolved relative to the program.
func simulate(path, interpreterName string) error {
	program, err := simulation.LoadProgram(path)
	if err != nil {
		return err
	}
	interpreter, err := tosca.NewInterpreter(interpreterName)
	if err != nil {
		return err
	}
	dir := filepath.Dir(path)
	files, err := cheatcodes.NewProjectFiles(cheatcodes.FilesConfig{Root: dir})
	if err != nil {
		return err
	}
	engine := cheatcodes.NewEngine(cheatcodes.Config{Files: files})
	sim := simulation.New(interpreter, engine)
	if err := program.Run(sim, dir); err != nil {
		return err
	}
	log.Info("Simulation completed", "steps", len(program.Steps))
	return nil
}
