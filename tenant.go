package kitchenauth

// platformTenant is the reserved tenant ID for platform-level principals
// (admins and merchant staff). Customer accounts always belong to a
// positive tenant.
const platformTenant int64 = 0

// resolveEffectiveTenant pins the tenant a login or OTP flow operates
// under. A caller asking for a concrete tenant gets exactly that tenant. A
// caller asking for the platform scope is steered to the identity's own
// tenant when it has one, so a merchant user hitting the platform endpoint
// still lands on their merchant scope.
func resolveEffectiveTenant(requested int64, identityTenant *int64) int64 {
	if requested != platformTenant {
		return requested
	}
	if identityTenant != nil && *identityTenant != platformTenant {
		return *identityTenant
	}
	return platformTenant
}

// allowedOnTenantPath enforces the split between the platform login path
// and per-tenant login paths: admins and merchants authenticate on the
// platform path only, customers on their tenant path only.
func allowedOnTenantPath(userType UserType, requested int64) bool {
	if requested == platformTenant {
		return userType == UserAdmin || userType == UserMerchant
	}
	return userType == UserCustomer
}
