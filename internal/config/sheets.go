package config

import (
	"os"

	"github.com/Veraticus/musiqhub/internal/sheets"
	"github.com/spf13/viper"
)

// LoadSheetsConfig builds the Google Sheets configuration. Values set in
// the config file or MUSIQHUB_ variables win over the GOOGLE_SHEETS_*
// variables, which win over the defaults.
func LoadSheetsConfig() (*sheets.Config, error) {
	config := sheetsConfigFrom(viper.GetViper())
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

func sheetsConfigFrom(v *viper.Viper) sheets.Config {
	config := sheets.DefaultConfig()

	pick := func(key, env string) string {
		if s := v.GetString(key); s != "" {
			return s
		}
		return os.Getenv(env)
	}

	config.ServiceAccountPath = ExpandPath(pick("sheets.service_account_path", "GOOGLE_SHEETS_SERVICE_ACCOUNT_PATH"))
	config.ClientID = pick("sheets.client_id", "GOOGLE_SHEETS_CLIENT_ID")
	config.ClientSecret = pick("sheets.client_secret", "GOOGLE_SHEETS_CLIENT_SECRET")
	config.RefreshToken = pick("sheets.refresh_token", "GOOGLE_SHEETS_REFRESH_TOKEN")
	config.SpreadsheetID = pick("sheets.spreadsheet_id", "GOOGLE_SHEETS_SPREADSHEET_ID")

	// Fall back to the token saved by `auth sheets`.
	if config.RefreshToken == "" && config.ServiceAccountPath == "" {
		if token, err := sheets.LoadToken(tokenFileFrom(v)); err == nil {
			config.RefreshToken = token.RefreshToken
		}
	}

	if name := pick("sheets.spreadsheet_name", "GOOGLE_SHEETS_SPREADSHEET_NAME"); name != "" {
		config.SpreadsheetName = name
	}
	if tz := v.GetString("sheets.time_zone"); tz != "" {
		config.TimeZone = tz
	}
	if v.IsSet("sheets.formatting") {
		config.EnableFormatting = v.GetBool("sheets.formatting")
	}

	return config
}

// TokenFile is where `auth sheets` stores the OAuth token.
func TokenFile() string {
	return tokenFileFrom(viper.GetViper())
}

func tokenFileFrom(v *viper.Viper) string {
	if p := v.GetString("sheets.token_file"); p != "" {
		return ExpandPath(p)
	}
	return ExpandPath("~/.config/musiqhub/sheets-token.json")
}
