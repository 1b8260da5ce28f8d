/*
Copyright 2025 The Crossplane Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/
package version

import (
	"testing"

	"github.com/alecthomas/kong"
	unittestsUtils "github.com/crossplane-contrib/xconform/internal/unittests/utils"
	"github.com/crossplane-contrib/xconform/internal/version"
	"github.com/stretchr/testify/assert" //nolint:depguard // testify is widely used for testing
)

func TestCmd_Run(t *testing.T) {
	var err error

	output := unittestsUtils.CaptureStdout(func() {
		err = (&Cmd{}).Run(&kong.Context{})
	})

	assert.NoError(t, err)
	assert.Equal(t, version.GetVersion()+"\n", output)
}
