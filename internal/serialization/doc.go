// Package serialization stores feature maps, correlation volumes and their
// gradients in SafeTensors files.
//
//	Format Structure:
//	  [8 bytes: Header Size (uint64 LE)]
//	  [Header: JSON, tensor name -> {dtype, shape, data_offsets}]
//	  [Tensor data: raw little-endian bytes, alphabetical by name]
//
// Every written tensor also gets an xxHash64 fingerprint of its dtype, shape
// and data in the "__metadata__" section under "xxh64.<name>". The reader
// verifies the fingerprint when it is present, so truncated or corrupted
// files are reported instead of silently producing wrong inputs.
//
// Example usage:
//
//	err := serialization.WriteFile("pair.safetensors", map[string]*tensor.RawTensor{
//	    "input1": in1,
//	    "input2": in2,
//	}, nil)
//
//	f, err := serialization.Open("pair.safetensors")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer f.Close()
//	in1, err := f.Tensor("input1")
package serialization
