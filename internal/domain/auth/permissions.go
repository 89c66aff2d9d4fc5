package auth

const (
	PermEmployeesRead        = "core.employees.read"
	PermEmployeesWrite       = "core.employees.write"
	PermOrgRead              = "core.org.read"
	PermOrgWrite             = "core.org.write"
	PermGroupsRead           = "groups.read"
	PermGroupsManage         = "groups.manage"
	PermCalendarsRead        = "calendars.read"
	PermCalendarsManage      = "calendars.manage"
	PermCampaignsRead        = "campaigns.read"
	PermCampaignsManage      = "campaigns.manage"
	PermCampaignsPublish     = "campaigns.publish"
	PermEvaluationsRead      = "evaluations.read"
	PermEvaluationsWrite     = "evaluations.write"
	PermEvaluationsReview    = "evaluations.review"
	PermEvaluationsFinalize  = "evaluations.finalize"
	PermEvaluationsCalibrate = "evaluations.calibrate"
	PermTasksRead            = "tasks.read"
	PermTasksManage          = "tasks.manage"
	PermReportsRead          = "reports.read"
	PermAuditRead            = "audit.read"
	PermSystemAdmin          = "admin.system"
)

var DefaultPermissions = []string{
	PermEmployeesRead,
	PermEmployeesWrite,
	PermOrgRead,
	PermOrgWrite,
	PermGroupsRead,
	PermGroupsManage,
	PermCalendarsRead,
	PermCalendarsManage,
	PermCampaignsRead,
	PermCampaignsManage,
	PermCampaignsPublish,
	PermEvaluationsRead,
	PermEvaluationsWrite,
	PermEvaluationsReview,
	PermEvaluationsFinalize,
	PermEvaluationsCalibrate,
	PermTasksRead,
	PermTasksManage,
	PermReportsRead,
	PermAuditRead,
	PermSystemAdmin,
}

var RolePermissions = map[string][]string{
	RoleEmployee: {
		PermEmployeesRead,
		PermOrgRead,
		PermEvaluationsRead,
		PermEvaluationsWrite,
		PermReportsRead,
	},
	RoleManager: {
		PermEmployeesRead,
		PermOrgRead,
		PermGroupsRead,
		PermCalendarsRead,
		PermCampaignsRead,
		PermEvaluationsRead,
		PermEvaluationsWrite,
		PermEvaluationsReview,
		PermEvaluationsFinalize,
		PermTasksRead,
		PermReportsRead,
	},
	RoleHR: {
		PermEmployeesRead,
		PermEmployeesWrite,
		PermOrgRead,
		PermOrgWrite,
		PermGroupsRead,
		PermGroupsManage,
		PermCalendarsRead,
		PermCalendarsManage,
		PermCampaignsRead,
		PermCampaignsManage,
		PermCampaignsPublish,
		PermEvaluationsRead,
		PermEvaluationsWrite,
		PermEvaluationsReview,
		PermEvaluationsFinalize,
		PermEvaluationsCalibrate,
		PermTasksRead,
		PermTasksManage,
		PermReportsRead,
		PermAuditRead,
	},
	RoleAdmin: {
		PermEmployeesRead,
		PermEmployeesWrite,
		PermOrgRead,
		PermOrgWrite,
		PermGroupsRead,
		PermGroupsManage,
		PermCalendarsRead,
		PermCalendarsManage,
		PermCampaignsRead,
		PermCampaignsManage,
		PermCampaignsPublish,
		PermEvaluationsRead,
		PermEvaluationsWrite,
		PermEvaluationsReview,
		PermEvaluationsFinalize,
		PermEvaluationsCalibrate,
		PermTasksRead,
		PermTasksManage,
		PermReportsRead,
		PermAuditRead,
		PermSystemAdmin,
	},
	RoleSuperAdmin: {
		PermSystemAdmin,
	},
}
