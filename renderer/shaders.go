package renderer

import (
	"github.com/go-gl/mathgl/mgl32"

	"scenegraph/gpu"
	"scenegraph/loader"
	"scenegraph/scene"
)

// Texture0SamplerUniform names the sampler bound to texture unit 0.
const Texture0SamplerUniform = "Texture0"

// LightDirectionUniform is the eye-space direction towards the light. Its
// length scales the diffuse term.
const LightDirectionUniform = "LightDirection"

const defaultVertexSrc = `
#version 410 core
in vec3 Vertex;
in vec3 Normal;
in vec2 TexCoord0;
in vec4 Color;

uniform mat4 ModelViewMatrix;
uniform mat4 ProjectionMatrix;
uniform mat4 NormalMatrix;
uniform bool ArrayColorEnabled;

out vec3 fragNormal;
out vec2 fragUV;
out vec4 fragColor;

void main() {
    fragNormal = mat3(NormalMatrix) * Normal;
    fragUV = TexCoord0;
    fragColor = ArrayColorEnabled ? Color : vec4(1.0);
    gl_Position = ProjectionMatrix * ModelViewMatrix * vec4(Vertex, 1.0);
}
` + "\x00"

const defaultFragmentSrc = `
#version 410 core
in vec3 fragNormal;
in vec2 fragUV;
in vec4 fragColor;

uniform vec4 BaseColor;
uniform vec3 LightDirection;
uniform bool Texture0Enabled;
uniform sampler2D Texture0;

out vec4 outColor;

void main() {
    vec4 albedo = BaseColor * fragColor;
    if (Texture0Enabled) {
        albedo *= texture(Texture0, fragUV);
    }
    vec3 n = normalize(fragNormal);
    float diffuse = max(dot(n, normalize(LightDirection)), 0.0) * length(LightDirection);
    outColor = vec4(albedo.rgb * (0.25 + 0.75 * diffuse), albedo.a);
}
` + "\x00"

// NewDefaultProgram returns the built-in lit program. It reads the Vertex,
// Normal, TexCoord0 and Color attributes.
func NewDefaultProgram() *gpu.Program {
	return gpu.NewProgram(defaultVertexSrc, defaultFragmentSrc,
		scene.VertexAttribute, scene.NormalAttribute, scene.TexCoord0Attribute, scene.ColorAttribute)
}

// NewDefaultStateSet returns a state set carrying the default program and
// neutral values for every uniform it reads, suitable for the scene root.
func NewDefaultStateSet() *gpu.StateSet {
	ss := gpu.NewStateSet()
	ss.SetProgram(NewDefaultProgram())
	ss.AddUniform(gpu.NewUniformFloats(loader.BaseColorUniform, 1, 1, 1, 1))
	ss.AddUniform(gpu.NewUniformInt(loader.Texture0EnabledUniform, 0))
	ss.AddUniform(gpu.NewUniformInt(Texture0SamplerUniform, 0))
	light := mgl32.Vec3{0.3, 0.8, 0.5}.Normalize()
	ss.AddUniform(gpu.NewUniformFloats(LightDirectionUniform, light[0], light[1], light[2]))
	return ss
}
