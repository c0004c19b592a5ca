package rbac

// Default policy. Expand as needed.
var RolePermissions = map[string][]string{
	"student": {
		"quiz:list",
		"attempt:create",
		"attempt:answer",
		"attempt:submit",
		"attempt:view-own",
		"result:view-own",
	},
	"teacher": {
		"course:create",
		"course:enroll",
		"quiz:create",
		"quiz:update",
		"quiz:publish",
		"quiz:archive",
		"quiz:delete",
		"quiz:view-own",
		"attempt:view-all",
		"analytics:view",
		"export:run",
	},
	"admin": {
		"*", // everything
	},
}
