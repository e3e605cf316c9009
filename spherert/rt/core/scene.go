package core

import (
	"math"
	"math/rand/v2"

	"github.com/go-gl/mathgl/mgl32"
)

// Sphere is the host-side description of one instance.
type Sphere struct {
	Center        mgl32.Vec3
	Radius        float32
	MaterialIndex uint32
}

type Material struct {
	BaseColor [4]float32 // RGBA, linear
	Metallic  float32
	Roughness float32
	Emission  [3]float32
}

func DefaultMaterial() Material {
	return Material{
		BaseColor: [4]float32{1, 1, 1, 1},
		Metallic:  0.0,
		Roughness: 1.0,
	}
}

// RandomSpheres scatters n spheres uniformly in the cube [-extent, extent]^3.
// Material indices cycle through [0, materials).
func RandomSpheres(n int, materials uint32, extent, radius float32, rng *rand.Rand) []Sphere {
	if materials == 0 {
		materials = 1
	}
	spheres := make([]Sphere, n)
	for i := range spheres {
		spheres[i] = Sphere{
			Center: mgl32.Vec3{
				rng.Float32()*2*extent - extent,
				rng.Float32()*2*extent - extent,
				rng.Float32()*2*extent - extent,
			},
			Radius:        radius,
			MaterialIndex: uint32(i) % materials,
		}
	}
	return spheres
}

// Palette builds n materials sweeping the hue circle. Even entries are
// dielectric, odd entries metallic; roughness ramps from 0.1 to 0.9.
func Palette(n int) []Material {
	mats := make([]Material, n)
	for i := range mats {
		h := float32(i) / float32(max(n, 1))
		r, g, b := hsvToRGB(h, 0.65, 0.9)
		m := DefaultMaterial()
		m.BaseColor = [4]float32{r, g, b, 1}
		if i%2 == 1 {
			m.Metallic = 1.0
		}
		if n > 1 {
			m.Roughness = 0.1 + 0.8*float32(i)/float32(n-1)
		} else {
			m.Roughness = 0.5
		}
		mats[i] = m
	}
	return mats
}

func hsvToRGB(h, s, v float32) (float32, float32, float32) {
	h6 := float64(h) * 6
	i := math.Floor(h6)
	f := float32(h6 - i)
	p := v * (1 - s)
	q := v * (1 - s*f)
	t := v * (1 - s*(1-f))
	switch int(i) % 6 {
	case 0:
		return v, t, p
	case 1:
		return q, v, p
	case 2:
		return p, v, t
	case 3:
		return p, q, v
	case 4:
		return t, p, v
	default:
		return v, p, q
	}
}
