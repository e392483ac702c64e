// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

//go:build windows

package fileutils

import "os"

// IsWritable reports whether files can be created in the directory dir.
func IsWritable(dir string) bool {
	probe, err := os.CreateTemp(dir, ".probe-*")
	if err != nil {
		return false
	}

	probe.Close() //nolint:errcheck

	return os.Remove(probe.Name()) == nil
}
