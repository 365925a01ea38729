// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package optim_test

import (
	"fmt"

	"github.com/born-ml/rmsprop/backend/cpu"
	"github.com/born-ml/rmsprop/nn"
	"github.com/born-ml/rmsprop/optim"
	"github.com/born-ml/rmsprop/tensor"
)

func ExampleNewRMSProp() {
	tracker := tensor.NewTracker()
	backend := cpu.New(cpu.WithAllocator(tracker))

	reg := nn.NewRegistry()
	reg.MustRegister("w", tensor.MustFromSlice(tracker, []float32{1}, tensor.Shape{1}))

	opt, err := optim.NewRMSProp(reg, optim.RMSPropConfig{LR: 0.1, Decay: 0.9}, backend)
	if err != nil {
		panic(err)
	}

	for _, g := range []float32{2, 1} {
		grad := tensor.MustFromSlice(tracker, []float32{g}, tensor.Shape{1})
		if err := opt.ApplyGradients(map[string]*tensor.RawTensor{"w": grad}); err != nil {
			panic(err)
		}
		grad.Release()

		w, _ := reg.Get("w")
		cache, _ := opt.Accumulator("w")
		fmt.Printf("w=%.4f cache=%.4f\n", w.Value().AsFloat32()[0], cache.AsFloat32()[0])
	}

	opt.Dispose()
	reg.Dispose()
	fmt.Println("live buffers:", tracker.Live())

	// Output:
	// w=0.6838 cache=0.4000
	// w=0.5363 cache=0.4600
	// live buffers: 0
}
