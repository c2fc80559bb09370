package config

import (
	"github.com/Veraticus/musiqhub/internal/source"
	"github.com/spf13/viper"
)

// LoadS3Config reads the s3.* keys. Anything left empty falls through to
// the AWS SDK's own environment and shared-config lookup.
func LoadS3Config() source.S3Config {
	return s3ConfigFrom(viper.GetViper())
}

func s3ConfigFrom(v *viper.Viper) source.S3Config {
	return source.S3Config{
		Region:          v.GetString("s3.region"),
		Profile:         v.GetString("s3.profile"),
		Endpoint:        v.GetString("s3.endpoint"),
		AccessKeyID:     v.GetString("s3.access_key_id"),
		SecretAccessKey: v.GetString("s3.secret_access_key"),
		UsePathStyle:    v.GetBool("s3.path_style"),
	}
}
