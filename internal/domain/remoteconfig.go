package domain

import (
	"fmt"
	"strconv"
	"strings"
)

// RemoteConfig mirrors the backend's sectioned configuration document.
// The client never invents values; it loads, edits, and saves whole
// documents through the config endpoints.
type RemoteConfig struct {
	Paths       PathsConfig       `json:"paths"`
	SellerCloud SellerCloudConfig `json:"sellercloud"`
	Shopify     ShopifyConfig     `json:"shopify"`
	Eniture     EnitureConfig     `json:"eniture"`
	Automation  AutomationConfig  `json:"automation"`
	Scraping    ScrapingConfig    `json:"scraping"`
}

// PathsConfig names the backend-side working folders.
type PathsConfig struct {
	ProcessFolder string `json:"process_folder"`
	FinalFolder   string `json:"final_folder"`
}

// SellerCloudConfig holds marketplace upload credentials and pacing.
type SellerCloudConfig struct {
	APIURL              string `json:"api_url"`
	RESTEndpoint        string `json:"rest_endpoint"`
	Username            string `json:"username"`
	Password            string `json:"password"`
	RateLimitPerHour    int    `json:"rate_limit_per_hour"`
	DelayBetweenUploads int    `json:"delay_between_uploads"`
}

// ShopifyConfig holds the storefront publishing target.
type ShopifyConfig struct {
	ChannelName string `json:"channel_name"`
	StoreURL    string `json:"store_url"`
	APIToken    string `json:"api_token"`
}

// EnitureConfig holds the freight API target.
type EnitureConfig struct {
	APIKey string `json:"api_key"`
	APIURL string `json:"api_url"`
}

// AutomationConfig toggles the backend's unattended pipeline steps.
type AutomationConfig struct {
	AutoScrape          bool `json:"auto_scrape"`
	AutoProcess         bool `json:"auto_process"`
	AutoUpload          bool `json:"auto_upload"`
	AutoPublish         bool `json:"auto_publish"`
	UpdateExistingFiles bool `json:"update_existing_files"`
}

// ScrapingConfig carries the default scrape-job parameters offered to
// the operator before a file is inspected.
type ScrapingConfig struct {
	VariationMode string `json:"variation_mode"`
	ModelColumn   string `json:"model_column"`
	Prefix        string `json:"prefix"`
	StartRow      int    `json:"start_row"`
	EndRow        int    `json:"end_row"`
	SaveInterval  int    `json:"save_interval"`
}

// DefaultRemoteConfig returns the document the backend ships with.
// Used for display before the first successful load and in tests.
func DefaultRemoteConfig() RemoteConfig {
	return RemoteConfig{
		SellerCloud: SellerCloudConfig{
			APIURL:              "https://an.api.sellercloud.com",
			RESTEndpoint:        "https://an.api.sellercloud.com/rest",
			RateLimitPerHour:    10800,
			DelayBetweenUploads: 120,
		},
		Shopify: ShopifyConfig{
			ChannelName: "Shopify",
		},
		Eniture: EnitureConfig{
			APIURL: "https://s-web-api.eniture.com",
		},
		Automation: AutomationConfig{
			AutoScrape:          true,
			UpdateExistingFiles: true,
		},
		Scraping: ScrapingConfig{
			VariationMode: DefaultVariationMode,
			ModelColumn:   DefaultModelColumn,
			StartRow:      1,
			EndRow:        1000,
			SaveInterval:  5,
		},
	}
}

// UpdateField applies one edit addressed by section and key, parsing
// and validating the raw value against the field's type. Unknown
// sections, unknown keys, and out-of-range values are rejected.
func (c *RemoteConfig) UpdateField(section, key, value string) error {
	switch section {
	case "paths":
		switch key {
		case "process_folder":
			c.Paths.ProcessFolder = value
		case "final_folder":
			c.Paths.FinalFolder = value
		default:
			return unknownKey(section, key)
		}
	case "sellercloud":
		switch key {
		case "api_url":
			c.SellerCloud.APIURL = value
		case "rest_endpoint":
			c.SellerCloud.RESTEndpoint = value
		case "username":
			c.SellerCloud.Username = value
		case "password":
			c.SellerCloud.Password = value
		case "rate_limit_per_hour":
			n, err := parseNonNegative(section, key, value)
			if err != nil {
				return err
			}
			c.SellerCloud.RateLimitPerHour = n
		case "delay_between_uploads":
			n, err := parseNonNegative(section, key, value)
			if err != nil {
				return err
			}
			c.SellerCloud.DelayBetweenUploads = n
		default:
			return unknownKey(section, key)
		}
	case "shopify":
		switch key {
		case "channel_name":
			c.Shopify.ChannelName = value
		case "store_url":
			c.Shopify.StoreURL = value
		case "api_token":
			c.Shopify.APIToken = value
		default:
			return unknownKey(section, key)
		}
	case "eniture":
		switch key {
		case "api_key":
			c.Eniture.APIKey = value
		case "api_url":
			c.Eniture.APIURL = value
		default:
			return unknownKey(section, key)
		}
	case "automation":
		b, err := strconv.ParseBool(strings.TrimSpace(value))
		if err != nil {
			return fmt.Errorf("automation.%s: %q is not a boolean", key, value)
		}
		switch key {
		case "auto_scrape":
			c.Automation.AutoScrape = b
		case "auto_process":
			c.Automation.AutoProcess = b
		case "auto_upload":
			c.Automation.AutoUpload = b
		case "auto_publish":
			c.Automation.AutoPublish = b
		case "update_existing_files":
			c.Automation.UpdateExistingFiles = b
		default:
			return unknownKey(section, key)
		}
	case "scraping":
		switch key {
		case "variation_mode":
			if strings.TrimSpace(value) == "" {
				value = DefaultVariationMode
			}
			c.Scraping.VariationMode = value
		case "model_column":
			if strings.TrimSpace(value) == "" {
				return fmt.Errorf("scraping.model_column: cannot be empty")
			}
			c.Scraping.ModelColumn = value
		case "prefix":
			c.Scraping.Prefix = strings.TrimSpace(value)
		case "start_row":
			n, err := parsePositive(section, key, value)
			if err != nil {
				return err
			}
			c.Scraping.StartRow = n
		case "end_row":
			n, err := parsePositive(section, key, value)
			if err != nil {
				return err
			}
			if n < c.Scraping.StartRow {
				return fmt.Errorf("scraping.end_row: %d is before start_row %d", n, c.Scraping.StartRow)
			}
			c.Scraping.EndRow = n
		case "save_interval":
			n, err := parsePositive(section, key, value)
			if err != nil {
				return err
			}
			c.Scraping.SaveInterval = n
		default:
			return unknownKey(section, key)
		}
	default:
		return fmt.Errorf("unknown config section %q", section)
	}
	return nil
}

func unknownKey(section, key string) error {
	return fmt.Errorf("unknown config key %s.%s", section, key)
}

func parsePositive(section, key, value string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return 0, fmt.Errorf("%s.%s: %q is not a number", section, key, value)
	}
	if n < 1 {
		return 0, fmt.Errorf("%s.%s: %d is below 1", section, key, n)
	}
	return n, nil
}

func parseNonNegative(section, key, value string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return 0, fmt.Errorf("%s.%s: %q is not a number", section, key, value)
	}
	if n < 0 {
		return 0, fmt.Errorf("%s.%s: cannot be negative", section, key)
	}
	return n, nil
}
