package shaders

import (
	_ "embed"
)

//go:embed compute.wgsl
var ComputeWGSL string

//go:embed vertex.wgsl
var VertexWGSL string

//go:embed fragment.wgsl
var FragmentWGSL string
