// Package deb builds and inspects Debian binary packages without external
// tooling.
//
// The package operates in-memory: a Package is assembled from control
// metadata, maintainer scripts and payload files, then serialized to any
// io.Writer as a valid .deb (ar container holding debian-binary,
// control.tar.gz and data.tar.gz). No dpkg-deb installation is required on
// the build host, which keeps the DEB path of the build pipeline runnable
// anywhere Go runs.
//
// It also generates the index files of a flat APT repository (Packages,
// Packages.gz, Release, InRelease) over a set of built .deb artifacts, so a
// directory of releases can be served directly from static hosting.
package deb
