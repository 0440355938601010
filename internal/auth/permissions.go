package auth

import "strings"

// Permission is a catalog permission such as "articles.delete".
// Values only come from the definitions below or from Catalog.Lookup, so a
// misspelled permission can not reach an access check.
// The zero value is not a valid permission and is never granted.
type Permission struct {
	name        string
	module      string
	description string
}

func newPermission(module, action, description string) Permission {
	return Permission{
		name:        module + "." + action,
		module:      module,
		description: description,
	}
}

// Name returns the unique module.action identifier.
func (p Permission) Name() string { return p.name }

// Module returns the grouping tag.
func (p Permission) Module() string { return p.module }

// Description returns the human label.
func (p Permission) Description() string { return p.description }

// String implements fmt.Stringer.
func (p Permission) String() string { return p.name }

// IsZero reports whether p is the zero value.
func (p Permission) IsZero() bool { return p.name == "" }

func (p Permission) valid() bool {
	module, action, ok := strings.Cut(p.name, ".")

	return ok && module != "" && action != "" && module == p.module && !strings.ContainsAny(action, " \t")
}

// Modules of the CMS.
const (
	ModuleArticles   = "articles"
	ModuleCategories = "categories"
	ModulePages      = "pages"
	ModuleVideos     = "videos"
	ModulePodcasts   = "podcasts"
	ModuleAds        = "ads"
	ModuleBanners    = "banners"
	ModuleNewsletter = "newsletter"
	ModuleContact    = "contact"
	ModuleUsers      = "users"
	ModuleRoles      = "roles"
	ModuleMedia      = "media"
	ModuleSettings   = "settings"
	ModuleSEO        = "seo"
	ModuleFooter     = "footer"
)

// Article permissions.
var (
	ArticlesCreate = newPermission(ModuleArticles, "create", "Create articles")
	ArticlesRead   = newPermission(ModuleArticles, "read", "Read articles")
	ArticlesUpdate = newPermission(ModuleArticles, "update", "Update articles")
	ArticlesDelete = newPermission(ModuleArticles, "delete", "Delete articles")
)

// Category permissions.
var (
	CategoriesCreate = newPermission(ModuleCategories, "create", "Create categories")
	CategoriesRead   = newPermission(ModuleCategories, "read", "Read categories")
	CategoriesUpdate = newPermission(ModuleCategories, "update", "Update categories")
	CategoriesDelete = newPermission(ModuleCategories, "delete", "Delete categories")
)

// Page permissions.
var (
	PagesCreate = newPermission(ModulePages, "create", "Create pages")
	PagesRead   = newPermission(ModulePages, "read", "Read pages")
	PagesUpdate = newPermission(ModulePages, "update", "Update pages")
	PagesDelete = newPermission(ModulePages, "delete", "Delete pages")
)

// Video permissions.
var (
	VideosCreate = newPermission(ModuleVideos, "create", "Create videos")
	VideosRead   = newPermission(ModuleVideos, "read", "Read videos")
	VideosUpdate = newPermission(ModuleVideos, "update", "Update videos")
	VideosDelete = newPermission(ModuleVideos, "delete", "Delete videos")
)

// Podcast permissions.
var (
	PodcastsCreate = newPermission(ModulePodcasts, "create", "Create podcasts")
	PodcastsRead   = newPermission(ModulePodcasts, "read", "Read podcasts")
	PodcastsUpdate = newPermission(ModulePodcasts, "update", "Update podcasts")
	PodcastsDelete = newPermission(ModulePodcasts, "delete", "Delete podcasts")
)

// Advertising permissions.
var (
	AdsCreate = newPermission(ModuleAds, "create", "Create ads")
	AdsRead   = newPermission(ModuleAds, "read", "Read ads")
	AdsUpdate = newPermission(ModuleAds, "update", "Update ads")
	AdsDelete = newPermission(ModuleAds, "delete", "Delete ads")

	BannersCreate = newPermission(ModuleBanners, "create", "Create banners")
	BannersRead   = newPermission(ModuleBanners, "read", "Read banners")
	BannersUpdate = newPermission(ModuleBanners, "update", "Update banners")
	BannersDelete = newPermission(ModuleBanners, "delete", "Delete banners")
)

// Audience permissions.
var (
	NewsletterRead   = newPermission(ModuleNewsletter, "read", "View newsletter subscribers")
	NewsletterDelete = newPermission(ModuleNewsletter, "delete", "Delete newsletter subscribers")

	ContactRead   = newPermission(ModuleContact, "read", "Read contact messages")
	ContactDelete = newPermission(ModuleContact, "delete", "Delete contact messages")
)

// Administration permissions.
var (
	UsersCreate = newPermission(ModuleUsers, "create", "Create users")
	UsersRead   = newPermission(ModuleUsers, "read", "View users")
	UsersUpdate = newPermission(ModuleUsers, "update", "Update users")
	UsersDelete = newPermission(ModuleUsers, "delete", "Delete users")

	RolesCreate = newPermission(ModuleRoles, "create", "Create roles")
	RolesRead   = newPermission(ModuleRoles, "read", "View roles")
	RolesUpdate = newPermission(ModuleRoles, "update", "Update roles")
	RolesDelete = newPermission(ModuleRoles, "delete", "Delete roles")
)

// Media permissions.
var (
	MediaCreate = newPermission(ModuleMedia, "create", "Upload media")
	MediaRead   = newPermission(ModuleMedia, "read", "View media")
	MediaDelete = newPermission(ModuleMedia, "delete", "Delete media")
)

// Site configuration permissions.
var (
	SettingsRead   = newPermission(ModuleSettings, "read", "View settings")
	SettingsUpdate = newPermission(ModuleSettings, "update", "Update settings")

	SEORead   = newPermission(ModuleSEO, "read", "View SEO settings")
	SEOUpdate = newPermission(ModuleSEO, "update", "Update SEO settings")

	FooterRead   = newPermission(ModuleFooter, "read", "View footer")
	FooterUpdate = newPermission(ModuleFooter, "update", "Update footer")
)

// builtinPermissions lists every permission of the default catalog.
func builtinPermissions() []Permission {
	return []Permission{
		ArticlesCreate, ArticlesRead, ArticlesUpdate, ArticlesDelete,
		CategoriesCreate, CategoriesRead, CategoriesUpdate, CategoriesDelete,
		PagesCreate, PagesRead, PagesUpdate, PagesDelete,
		VideosCreate, VideosRead, VideosUpdate, VideosDelete,
		PodcastsCreate, PodcastsRead, PodcastsUpdate, PodcastsDelete,
		AdsCreate, AdsRead, AdsUpdate, AdsDelete,
		BannersCreate, BannersRead, BannersUpdate, BannersDelete,
		NewsletterRead, NewsletterDelete,
		ContactRead, ContactDelete,
		UsersCreate, UsersRead, UsersUpdate, UsersDelete,
		RolesCreate, RolesRead, RolesUpdate, RolesDelete,
		MediaCreate, MediaRead, MediaDelete,
		SettingsRead, SettingsUpdate,
		SEORead, SEOUpdate,
		FooterRead, FooterUpdate,
	}
}

// WriterPermissions is the default grant set of the Writer role.
func WriterPermissions() []Permission {
	return []Permission{
		ArticlesCreate, ArticlesRead, ArticlesUpdate, ArticlesDelete,
		CategoriesRead,
		MediaCreate, MediaRead, MediaDelete,
	}
}

// AssistantPermissions is the default read-only grant set of the Assistant role.
func AssistantPermissions() []Permission {
	return []Permission{ArticlesRead, CategoriesRead, MediaRead}
}
