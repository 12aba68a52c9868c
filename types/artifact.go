package types

// ArtifactID names one built image for one matrix cell, in the form
// <app>:<version>_<baseImage>-<tag>.
type ArtifactID string

// NewArtifactID computes the artifact identifier for a build.
func NewArtifactID(app, version, baseImage, tag string) ArtifactID {
	return ArtifactID(app + ":" + version + "_" + baseImage + "-" + tag)
}

func (a ArtifactID) String() string { return string(a) }
