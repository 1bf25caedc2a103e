package model

// SiteConfig is the operator-editable storefront content.
type SiteConfig struct {
	CustomerService CustomerService `json:"customerService"`
	Carousel        Carousel        `json:"carousel"`
	Banners         Banners         `json:"banners"`
	Footer          Footer          `json:"footer"`
	PurchaseGuide   PurchaseGuide   `json:"purchaseGuide"`
}

type CustomerService struct {
	Title string `json:"title"`
	QQ    struct {
		Number string `json:"number"`
		Label  string `json:"label"`
	} `json:"qq"`
	QRCode struct {
		URL    string `json:"url"`
		Width  string `json:"width"`
		Height string `json:"height"`
	} `json:"qrCode"`
}

type CarouselItem struct {
	Image       string `json:"image"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Link        string `json:"link"`
}

type Carousel struct {
	Items    []CarouselItem `json:"items"`
	Settings struct {
		Autoplay   bool `json:"autoplay"`
		Interval   int  `json:"interval"`
		ShowDots   bool `json:"showDots"`
		ShowArrows bool `json:"showArrows"`
	} `json:"settings"`
}

type Banner struct {
	Text  string `json:"text"`
	Image string `json:"image"`
	Link  string `json:"link"`
}

type Banners struct {
	Left  Banner `json:"left"`
	Right Banner `json:"right"`
}

type FooterLink struct {
	Text string `json:"text"`
	Href string `json:"href"`
}

type FooterSection struct {
	Title string       `json:"title"`
	Links []FooterLink `json:"links"`
}

type Footer struct {
	Sections  []FooterSection `json:"sections"`
	Copyright string          `json:"copyright"`
}

type Platform struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Icon  string `json:"icon"`
	URL   string `json:"url"`
	Color string `json:"color"`
}

type GuideStep struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Image       string `json:"image"`
}

// PurchaseGuide steps are keyed by Platform.ID.
type PurchaseGuide struct {
	Platforms []Platform             `json:"platforms"`
	Steps     map[string][]GuideStep `json:"steps"`
}

// DefaultSiteConfig is served until the backend copy has been loaded.
func DefaultSiteConfig() *SiteConfig {
	cfg := &SiteConfig{}
	cfg.CustomerService.Title = "联系客服"
	cfg.Footer.Copyright = "© Tokomo"
	cfg.PurchaseGuide.Steps = map[string][]GuideStep{}
	return cfg
}
