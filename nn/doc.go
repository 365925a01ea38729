// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package nn provides named trainable parameters and the registry that owns
// them.
//
// A Registry is passed explicitly to the optimizers that update it:
//
//	reg := nn.NewRegistry()
//	reg.MustRegister("w", w) // reg now owns w
//	defer reg.Dispose()
//
//	opt, err := optim.NewRMSProp(reg, optim.RMSPropConfig{LR: 0.01, Decay: 0.9}, backend)
package nn
