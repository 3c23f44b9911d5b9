// Copyright 2024
// SPDX-License-Identifier: Apache-2.0
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package backblaze archives exported fundamentals files to B2 object storage.
package backblaze

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/kothar/go-backblaze"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

// Upload copies an exported fundamentals file into the named bucket under
// prefix/. Credentials come from the backblaze section of the config file.
func Upload(fn, bucketName, prefix string) error {
	b2, err := backblaze.NewB2(backblaze.Credentials{
		KeyID:          viper.GetString("backblaze.application_id"),
		ApplicationKey: viper.GetString("backblaze.application_key"),
	})
	if err != nil {
		return fmt.Errorf("authorize backblaze: %w", err)
	}

	bucket, err := b2.Bucket(bucketName)
	if err != nil {
		return fmt.Errorf("lookup bucket %s: %w", bucketName, err)
	}
	if bucket == nil {
		return fmt.Errorf("bucket %s does not exist", bucketName)
	}

	fh, err := os.Open(fn)
	if err != nil {
		return fmt.Errorf("open export file: %w", err)
	}
	defer fh.Close()

	objectName := fmt.Sprintf("%s/%s", prefix, filepath.Base(fn))
	object, err := bucket.UploadFile(objectName, map[string]string{}, fh)
	if err != nil {
		return fmt.Errorf("upload %s to bucket %s: %w", objectName, bucketName, err)
	}

	log.Info().Str("Object", object.Name).Str("Bucket", bucketName).
		Int64("Bytes", object.ContentLength).Msg("archived fundamentals export to backblaze")
	return nil
}
